// Package npmrc reads and updates npm's ini-style configuration files.
package npmrc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// FileName is npm's per-user and per-project config file.
const FileName = ".npmrc"

var loadOptions = ini.LoadOptions{
	Loose:               true,
	KeyValueDelimiters:  "=",
	IgnoreInlineComment: true,
	AllowBooleanKeys:    true,
}

// Config layers the project .npmrc over the user one.
type Config struct {
	project  *ini.File
	user     *ini.File
	userPath string
}

// UserPath returns the user config file under home.
func UserPath(home string) string {
	return filepath.Join(home, FileName)
}

// Load reads projectDir/.npmrc and home/.npmrc. Missing files are empty.
func Load(projectDir, home string) (*Config, error) {
	c := &Config{userPath: UserPath(home)}

	var err error
	if c.user, err = ini.LoadSources(loadOptions, c.userPath); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.userPath, err)
	}
	projectPath := filepath.Join(projectDir, FileName)
	if c.project, err = ini.LoadSources(loadOptions, projectPath); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", projectPath, err)
	}
	return c, nil
}

var errNotLoaded = errors.New("npm config was not loaded")

// Get returns key, preferring the project file. A nil Config has no keys.
func (c *Config) Get(key string) string {
	if c == nil {
		return ""
	}
	for _, f := range []*ini.File{c.project, c.user} {
		if f == nil {
			continue
		}
		if k, err := f.Section(ini.DefaultSection).GetKey(key); err == nil {
			if v := strings.TrimSpace(k.String()); v != "" {
				return v
			}
		}
	}
	return ""
}

// Registry is the configured default registry.
func (c *Config) Registry() string {
	return c.Get("registry")
}

// ScopeRegistry returns the registry bound to scope ("@org").
func (c *Config) ScopeRegistry(scope string) string {
	if scope == "" {
		return ""
	}
	return c.Get(scope + ":registry")
}

// Username is the saved npm username.
func (c *Config) Username() string {
	return c.Get("username")
}

// Email is the saved npm email.
func (c *Config) Email() string {
	return c.Get("email")
}

// SaveUser records username and email in the user file, keeping every
// other key.
func (c *Config) SaveUser(username, email string) error {
	if c == nil {
		return errNotLoaded
	}
	sec := c.user.Section(ini.DefaultSection)
	sec.Key("username").SetValue(username)
	sec.Key("email").SetValue(email)

	if err := os.MkdirAll(filepath.Dir(c.userPath), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(c.userPath), err)
	}
	if err := c.user.SaveTo(c.userPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.userPath, err)
	}
	return nil
}

// Scope returns the "@org" part of a scoped package name.
func Scope(pkg string) string {
	if !strings.HasPrefix(pkg, "@") {
		return ""
	}
	if i := strings.Index(pkg, "/"); i > 1 {
		return pkg[:i]
	}
	return ""
}
