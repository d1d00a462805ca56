package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/relsetup/internal/errors"
	"github.com/systmms/relsetup/internal/vault"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tag: next
vault: aws
aws:
  region: eu-west-1
  prefix: team/
travisEnterpriseUrl: https://travis.corp.example
`), 0o600))

	cfg := &Config{DefaultsPath: path, Options: Options{Dir: dir, Home: dir}}
	require.NoError(t, cfg.Load())

	assert.Equal(t, "next", cfg.Options.Tag)
	assert.Equal(t, vault.BackendAWS, cfg.Options.Vault)
	assert.Equal(t, "https://travis.corp.example", cfg.Defaults.TravisEnterpriseURL)

	opts := cfg.VaultOptions()
	assert.Equal(t, "eu-west-1", opts.AWSRegion)
	assert.Equal(t, "team/", opts.AWSPrefix)
}

func TestLoad_FlagsWinOverDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tag: next\nvault: memory\n"), 0o600))

	cfg := &Config{DefaultsPath: path, Options: Options{Tag: "beta", Vault: "none", Dir: dir, Home: dir}}
	require.NoError(t, cfg.Load())
	assert.Equal(t, "beta", cfg.Options.Tag)
	assert.Equal(t, "none", cfg.Options.Vault)
}

func TestLoad_MissingFileUsesBuiltins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := &Config{DefaultsPath: filepath.Join(dir, "absent.yaml"), Options: Options{Dir: dir, Home: dir}}
	require.NoError(t, cfg.Load())
	assert.Equal(t, DefaultTag, cfg.Options.Tag)
	assert.Equal(t, vault.BackendAuto, cfg.Options.Vault)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tag: [unclosed\n"), 0o600))

	cfg := &Config{DefaultsPath: path, Options: Options{Dir: dir, Home: dir}}
	err := cfg.Load()
	var ce dserrors.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "path", ce.Field)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{name: "valid", opts: Options{Tag: "latest"}},
		{name: "tag with slash", opts: Options{Tag: "a/b"}, wantErr: "invalid dist-tag"},
		{name: "token and username", opts: Options{Tag: "latest", RegistryToken: "t", RegistryUsername: "u"}, wantErr: "cannot be combined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := (&Config{Options: tt.opts}).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	o := Options{Keychain: true}
	assert.True(t, o.UseStoredPasswords())
	o.AskForPasswords = true
	assert.False(t, o.UseStoredPasswords())
	assert.False(t, o.HasHostToken())
	assert.True(t, Options{RegistryToken: "x"}.HasRegistryToken())
}
