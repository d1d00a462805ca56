package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/require"
)

// PackageDir is a throwaway package root plus home directory.
type PackageDir struct {
	Dir  string
	Home string
	t    *testing.T
}

// NewPackageDir creates empty package and home directories.
func NewPackageDir(t *testing.T) *PackageDir {
	t.Helper()
	return &PackageDir{Dir: t.TempDir(), Home: t.TempDir(), t: t}
}

// WriteManifest writes package.json.
func (p *PackageDir) WriteManifest(content string) *PackageDir {
	p.t.Helper()
	p.write(filepath.Join(p.Dir, "package.json"), content)
	return p
}

// WriteUserNpmrc writes ~/.npmrc.
func (p *PackageDir) WriteUserNpmrc(content string) *PackageDir {
	p.t.Helper()
	p.write(filepath.Join(p.Home, ".npmrc"), content)
	return p
}

// WriteProjectNpmrc writes the package's .npmrc.
func (p *PackageDir) WriteProjectNpmrc(content string) *PackageDir {
	p.t.Helper()
	p.write(filepath.Join(p.Dir, ".npmrc"), content)
	return p
}

// WriteTravisConfig writes ~/.travis/config.yml.
func (p *PackageDir) WriteTravisConfig(content string) *PackageDir {
	p.t.Helper()
	p.write(filepath.Join(p.Home, ".travis", "config.yml"), content)
	return p
}

// InitGit makes Dir a git repository whose origin points at url.
func (p *PackageDir) InitGit(url string) *PackageDir {
	p.t.Helper()
	repo, err := git.PlainInit(p.Dir, false)
	require.NoError(p.t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: git.DefaultRemoteName, URLs: []string{url}})
	require.NoError(p.t, err)
	return p
}

// ReadManifest returns the current package.json contents.
func (p *PackageDir) ReadManifest() string {
	p.t.Helper()
	data, err := os.ReadFile(filepath.Join(p.Dir, "package.json"))
	require.NoError(p.t, err)
	return string(data)
}

func (p *PackageDir) write(path, content string) {
	p.t.Helper()
	require.NoError(p.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(p.t, os.WriteFile(path, []byte(content), 0o600))
}
