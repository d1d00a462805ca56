package setup

import (
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/relsetup/internal/manifest"
	"github.com/systmms/relsetup/internal/npmrc"
	"github.com/systmms/relsetup/internal/providers/npm"
	"github.com/systmms/relsetup/internal/vault"
)

const loginPath = "/-/user/org.couchdb.user:alice"

func TestResolveRegistry(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, ".npmrc"), []byte("registry=https://user.example/\n@org:registry=https://scope.example/\n"), 0o600))
	rc, err := npmrc.Load(project, home)
	require.NoError(t, err)
	empty, err := npmrc.Load(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name     string
		manifest string
		rc       *npmrc.Config
		fallback string
		want     string
	}{
		{"publishConfig wins", `{"name":"@org/pkg","publishConfig":{"registry":"https://publish.example/"}}`, rc, "", "https://publish.example/"},
		{"scope registry", `{"name":"@org/pkg"}`, rc, "", "https://scope.example/"},
		{"npmrc registry", `{"name":"pkg"}`, rc, "", "https://user.example/"},
		{"user default", `{"name":"pkg"}`, empty, "https://defaults.example/", "https://defaults.example/"},
		{"public registry", `{"name":"pkg"}`, empty, "", npm.DefaultRegistry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := manifest.Parse([]byte(tt.manifest))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ResolveRegistry(m, tt.rc, tt.fallback))
		})
	}
}

func TestRegistryStep_TokenModeIsSilent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.sc.Options.RegistryToken = "npm_cli_token"
	m := h.manifest(t, `{"name":"pkg"}`)

	require.NoError(t, RegistryStep{}.Run(context.Background(), m, h.sc))

	assert.Empty(t, h.renderer.Names(), "token mode must not prompt")
	assert.Empty(t, h.api.Calls(), "token mode must not touch the network")
	assert.Equal(t, AuthToken, h.sc.RegistryAuth.Method)
	assert.Equal(t, "npm_cli_token", h.sc.RegistryAuth.Token)
	assert.Equal(t, npm.DefaultRegistry, h.sc.RegistryAuth.RegistryURL)
	assert.Empty(t, h.vault.Sets)
}

func TestRegistryStep_UnreadableNpmrc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		token  string
		script func(h *harness)
	}{
		{name: "token mode", token: "npm_cli_token"},
		{
			name: "legacy login",
			script: func(h *harness) {
				scriptLegacyLogin(h)
				h.api.reply(http.MethodPut, loginPath, 201, `{"token":"npm_legacy"}`)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			require.NoError(t, os.MkdirAll(npmrc.UserPath(h.pkg.Home), 0o755))
			h.sc.Options.RegistryToken = tt.token
			if tt.script != nil {
				tt.script(h)
			}
			m := h.manifest(t, `{"name":"pkg"}`)

			require.NoError(t, RegistryStep{}.Run(context.Background(), m, h.sc))
			assert.NotEmpty(t, h.sc.RegistryAuth.Token)
			if tt.script == nil {
				assert.Equal(t, npm.DefaultRegistry, h.sc.RegistryAuth.RegistryURL)
				assert.Empty(t, h.renderer.Names())
				return
			}
			assert.Equal(t, "", h.renderer.Asked[1].Default)
			h.log.AssertContains(t, "Could not save npm config.")
		})
	}
}

func scriptLegacyLogin(h *harness) {
	h.renderer.
		Answer("registry", h.api.srv.URL).
		Answer("username", "alice").
		Answer("email", "alice@example.com").
		Answer("password", "hunter22")
}

func TestRegistryStep_LegacyLogin(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.pkg.WriteUserNpmrc("username=old\nemail=old@example.com\n")
	scriptLegacyLogin(h)
	h.api.reply(http.MethodPut, loginPath, 201, `{"token":"npm_legacy"}`)
	m := h.manifest(t, `{"name":"pkg"}`)

	require.NoError(t, RegistryStep{}.Run(context.Background(), m, h.sc))

	auth := h.sc.RegistryAuth
	assert.Equal(t, AuthLegacy, auth.Method)
	assert.Equal(t, "npm_legacy", auth.Token)
	assert.Equal(t, "alice", auth.Username)
	assert.Equal(t, "hunter22", auth.Password)
	assert.Equal(t, []string{vault.Service("npm") + "/alice"}, h.vault.Sets)

	assert.Equal(t, "old", h.renderer.Asked[1].Default)
	rc, err := npmrc.Load(h.pkg.Dir, h.pkg.Home)
	require.NoError(t, err)
	assert.Equal(t, "alice", rc.Username())
	assert.Equal(t, "alice@example.com", rc.Email())
}

func TestRegistryStep_StoredPasswordSkipsPrompt(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.vault.Seed(vault.Service("npm"), "alice", "from-keychain")
	h.renderer.
		Answer("registry", h.api.srv.URL).
		Answer("username", "alice").
		Answer("email", "alice@example.com")
	h.api.reply(http.MethodPut, loginPath, 201, `{"token":"npm_legacy"}`)
	m := h.manifest(t, `{"name":"pkg"}`)

	require.NoError(t, RegistryStep{}.Run(context.Background(), m, h.sc))
	assert.Equal(t, "from-keychain", h.sc.RegistryAuth.Password)
	assert.Zero(t, h.renderer.Count("password"))
}

func TestRegistryStep_AskForPasswordsIgnoresStore(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.sc.Options.AskForPasswords = true
	h.vault.Seed(vault.Service("npm"), "alice", "from-keychain")
	scriptLegacyLogin(h)
	h.api.reply(http.MethodPut, loginPath, 201, `{"token":"npm_legacy"}`)
	m := h.manifest(t, `{"name":"pkg"}`)

	require.NoError(t, RegistryStep{}.Run(context.Background(), m, h.sc))
	assert.Equal(t, "hunter22", h.sc.RegistryAuth.Password)
	assert.Equal(t, 1, h.renderer.Count("password"))
}

func TestRegistryStep_ConflictRetriesWithCredentials(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	scriptLegacyLogin(h)
	h.api.on(http.MethodPut, loginPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"user exists"}`))
			return
		}
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:hunter22"))
		assert.Equal(t, want, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"npm_after_conflict"}`))
	})
	m := h.manifest(t, `{"name":"pkg"}`)

	require.NoError(t, RegistryStep{}.Run(context.Background(), m, h.sc))
	assert.Equal(t, "npm_after_conflict", h.sc.RegistryAuth.Token)
	assert.Equal(t, 2, h.api.Count(http.MethodPut, loginPath))
	h.log.AssertNotContains(t, "✗")
}

func TestRegistryStep_OTPChallenge(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	scriptLegacyLogin(h)
	h.renderer.Answer("npm-otp", "112233")
	h.api.on(http.MethodPut, loginPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(npm.OTPHeader) != "112233" {
			w.Header().Set("WWW-Authenticate", "OTP")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"npm_otp"}`))
	})
	m := h.manifest(t, `{"name":"pkg"}`)

	require.NoError(t, RegistryStep{}.Run(context.Background(), m, h.sc))
	assert.Equal(t, "npm_otp", h.sc.RegistryAuth.Token)
	assert.Equal(t, 1, h.renderer.Count("npm-otp"))
	assert.Zero(t, h.sc.HostAuth.RetryCount, "registry challenges do not count as host retries")
}

func TestRegistryStep_LoginFailureLeavesNoToken(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	scriptLegacyLogin(h)
	h.api.reply(http.MethodPut, loginPath, 401, `{"error":"bad password"}`)
	m := h.manifest(t, `{"name":"pkg"}`)

	err := RegistryStep{}.Run(context.Background(), m, h.sc)
	require.Error(t, err)
	assert.Empty(t, h.sc.RegistryAuth.Token)
	assert.Empty(t, h.vault.Sets)
	h.log.AssertContains(t, "Could not login to npm registry")
}
