package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/relsetup/internal/errors"
	"github.com/systmms/relsetup/internal/logging"
	"github.com/systmms/relsetup/internal/vault"
)

// DefaultTag is the npm dist-tag pinned when none is given.
const DefaultTag = "latest"

// DevVersion replaces "version" when --dev-version is set.
const DevVersion = "0.0.0-development"

// Config holds the runtime configuration
type Config struct {
	Logger       *logging.Logger
	Options      Options
	Defaults     Defaults
	DefaultsPath string
}

// Options are the command-line switches. They are fixed once the setup
// pipeline starts.
type Options struct {
	Tag              string
	Keychain         bool
	AskForPasswords  bool
	HostToken        string
	RegistryToken    string
	HostUsername     string
	RegistryUsername string
	Vault            string
	DevVersion       bool
	Debug            bool
	NoColor          bool

	// Dir is the package root, Home the user's home directory.
	Dir  string
	Home string
}

// HasHostToken reports whether --gh-token was supplied.
func (o Options) HasHostToken() bool {
	return o.HostToken != ""
}

// HasRegistryToken reports whether --npm-token was supplied.
func (o Options) HasRegistryToken() bool {
	return o.RegistryToken != ""
}

// UseStoredPasswords reports whether passwords may come from the vault
// instead of a prompt.
func (o Options) UseStoredPasswords() bool {
	return o.Keychain && !o.AskForPasswords
}

// Defaults is the optional per-user defaults file.
type Defaults struct {
	Tag                 string   `yaml:"tag,omitempty"`
	Vault               string   `yaml:"vault,omitempty"`
	AWS                 AWSVault `yaml:"aws,omitempty"`
	TravisEnterpriseURL string   `yaml:"travisEnterpriseUrl,omitempty"`
	Registry            string   `yaml:"registry,omitempty"`
	CI                  string   `yaml:"ci,omitempty"`
}

// AWSVault configures the Secrets Manager vault.
type AWSVault struct {
	Region   string `yaml:"region,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Profile  string `yaml:"profile,omitempty"`
}

// DefaultsPath returns $XDG_CONFIG_HOME/relsetup/config.yaml.
func DefaultsPath() string {
	return filepath.Join(xdg.ConfigHome, "relsetup", "config.yaml")
}

// LoadDefaults reads the defaults file at path. A missing file yields
// zero Defaults.
func LoadDefaults(path string) (Defaults, error) {
	var d Defaults
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return d, nil
		}
		return d, dserrors.UserError{
			Message:    "Failed to read defaults file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, dserrors.ConfigError{
			Field:      "path",
			Value:      path,
			Message:    "invalid YAML syntax in defaults file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	return d, nil
}

// Load reads the defaults file and fills options left unset on the
// command line.
func (c *Config) Load() error {
	if c.DefaultsPath == "" {
		c.DefaultsPath = DefaultsPath()
	}
	d, err := LoadDefaults(c.DefaultsPath)
	if err != nil {
		return err
	}
	c.Defaults = d

	if c.Options.Tag == "" {
		c.Options.Tag = d.Tag
	}
	if c.Options.Tag == "" {
		c.Options.Tag = DefaultTag
	}
	if c.Options.Vault == "" {
		c.Options.Vault = d.Vault
	}
	if c.Options.Vault == "" {
		c.Options.Vault = vault.BackendAuto
	}
	if c.Options.Home == "" {
		c.Options.Home = xdg.Home
	}
	if c.Options.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}
		c.Options.Dir = wd
	}
	return c.Validate()
}

// Validate checks option values.
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Options.Tag, " /") {
		return dserrors.ConfigError{
			Field:      "tag",
			Value:      c.Options.Tag,
			Message:    "invalid dist-tag",
			Suggestion: "Use a dist-tag such as 'latest' or 'next'",
		}
	}
	if c.Options.RegistryToken != "" && c.Options.RegistryUsername != "" {
		return dserrors.ConfigError{
			Field:      "npm-username",
			Value:      c.Options.RegistryUsername,
			Message:    "--npm-username cannot be combined with --npm-token",
			Suggestion: "Pass either a token or a username",
		}
	}
	return nil
}

// VaultOptions translates the defaults file into vault construction
// options. Static AWS credentials come from the environment.
func (c *Config) VaultOptions() vault.Options {
	return vault.Options{
		AWSRegion:          c.Defaults.AWS.Region,
		AWSPrefix:          c.Defaults.AWS.Prefix,
		AWSEndpoint:        c.Defaults.AWS.Endpoint,
		AWSProfile:         c.Defaults.AWS.Profile,
		AWSAccessKeyID:     os.Getenv("RELSETUP_AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("RELSETUP_AWS_SECRET_ACCESS_KEY"),
		AWSSessionToken:    os.Getenv("RELSETUP_AWS_SESSION_TOKEN"),
	}
}
