// Package manifest loads, edits and saves package.json without disturbing
// key order or formatting conventions (two-space indent, trailing newline).
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the manifest file name.
const FileName = "package.json"

// Manifest is a parsed package.json.
type Manifest struct {
	root *Object
}

// New wraps root.
func New(root *Object) *Manifest {
	if root == nil {
		root = NewObject()
	}
	return &Manifest{root: root}
}

// Parse decodes data.
func Parse(data []byte) (*Manifest, error) {
	root := NewObject()
	if err := root.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &Manifest{root: root}, nil
}

// Bytes encodes the manifest with two-space indentation and a trailing
// newline.
func (m *Manifest) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.root); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", FileName, err)
	}
	return buf.Bytes(), nil
}

// Clone returns a deep copy.
func (m *Manifest) Clone() (*Manifest, error) {
	data, err := m.Bytes()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Root exposes the top-level object.
func (m *Manifest) Root() *Object {
	return m.root
}

// Name is the package name.
func (m *Manifest) Name() string {
	s, _ := m.root.GetString("name")
	return s
}

// Lookup walks nested objects along path.
func (m *Manifest) Lookup(path ...string) (interface{}, bool) {
	var cur interface{} = m.root
	for _, key := range path {
		obj, ok := cur.(*Object)
		if !ok {
			return nil, false
		}
		if cur, ok = obj.Get(key); !ok {
			return nil, false
		}
	}
	return cur, true
}

// LookupString returns the string at path, or "".
func (m *Manifest) LookupString(path ...string) string {
	v, ok := m.Lookup(path...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// SetPath stores value at path, creating intermediate objects. A non-object
// in the way is replaced.
func (m *Manifest) SetPath(value interface{}, path ...string) {
	if len(path) == 0 {
		return
	}
	obj := m.root
	for _, key := range path[:len(path)-1] {
		next, ok := obj.GetObject(key)
		if !ok {
			next = NewObject()
			obj.Set(key, next)
		}
		obj = next
	}
	obj.Set(path[len(path)-1], value)
}

// Delete removes a top-level key.
func (m *Manifest) Delete(key string) {
	m.root.Delete(key)
}

// RepositoryURL reads "repository" in either string or {url} form.
func (m *Manifest) RepositoryURL() string {
	v, ok := m.root.Get("repository")
	if !ok {
		return ""
	}
	switch r := v.(type) {
	case string:
		return strings.TrimSpace(r)
	case *Object:
		s, _ := r.GetString("url")
		return strings.TrimSpace(s)
	}
	return ""
}

// Store loads and persists a manifest.
type Store interface {
	Load() (*Manifest, error)
	Save(*Manifest) error
}

// ErrNotFound means there is no package.json to set up.
var ErrNotFound = errors.New("package.json not found")

// FileStore keeps the manifest on disk.
type FileStore struct {
	Path string
}

// NewFileStore returns a store for dir/package.json.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Path: filepath.Join(dir, FileName)}
}

// Load implements Store.
func (s *FileStore) Load() (*Manifest, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	return Parse(data)
}

// Save implements Store.
func (s *FileStore) Save(m *Manifest) error {
	data, err := m.Bytes()
	if err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(s.Path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(s.Path, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.Path, err)
	}
	return nil
}
