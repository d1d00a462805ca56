package travis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

func newServer(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, func() []recorded) {
	t.Helper()
	var mu sync.Mutex
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		mu.Lock()
		calls = append(calls, rec)
		mu.Unlock()
		handle(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), calls...)
	}
}

func TestAuthGitHubAndRepo(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/github":
			_, _ = w.Write([]byte(`{"access_token":"travis-tok"}`))
		case "/repos/org/name":
			assert.Equal(t, "token travis-tok", r.Header.Get("Authorization"))
			assert.Equal(t, mediaType, r.Header.Get("Accept"))
			_, _ = w.Write([]byte(`{"repo":{"id":42}}`))
		case "/hooks/42":
			_, _ = w.Write([]byte(`{"result":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	c := New(srv.URL)
	require.NoError(t, c.AuthGitHub(context.Background(), "gh"))
	assert.True(t, c.HasAccessToken())

	id, err := c.RepoID(context.Background(), "org", "name")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, c.ActivateHook(context.Background(), id))
}

func TestActivateHook_NoResult(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":false}`))
	})
	assert.Error(t, New(srv.URL).ActivateHook(context.Background(), 1))
}

func TestIsSyncing(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"is_syncing":true}}`))
	})
	syncing, err := New(srv.URL).IsSyncing(context.Background())
	require.NoError(t, err)
	assert.True(t, syncing)
}

func TestSetEnvVar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		existing   string
		wantMethod string
		wantPath   string
	}{
		{name: "creates missing variable", existing: `{"env_vars":[]}`, wantMethod: http.MethodPost, wantPath: "/settings/env_vars"},
		{name: "updates existing variable", existing: `{"env_vars":[{"id":"ev1","name":"GH_TOKEN","public":false}]}`, wantMethod: http.MethodPatch, wantPath: "/settings/env_vars/ev1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					_, _ = w.Write([]byte(tt.existing))
					return
				}
				_, _ = w.Write([]byte(`{}`))
			})

			c := New(srv.URL)
			c.SetAccessToken("tok")
			require.NoError(t, c.SetEnvVar(context.Background(), 7, "GH_TOKEN", "secret"))

			got := calls()
			require.Len(t, got, 2)
			assert.Equal(t, "repository_id=7", got[0].Query)
			assert.Equal(t, tt.wantMethod, got[1].Method)
			assert.Equal(t, tt.wantPath, got[1].Path)
			assert.Equal(t, "repository_id=7", got[1].Query)
			envVar := got[1].Body["env_var"].(map[string]interface{})
			assert.Equal(t, "GH_TOKEN", envVar["name"])
			assert.Equal(t, "secret", envVar["value"])
			assert.Equal(t, false, envVar["public"])
		})
	}
}

func TestLoadAccessToken(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".travis"), 0o755))
	config := "endpoints:\n  https://api.travis-ci.com/:\n    access_token: pro-token\n"
	require.NoError(t, os.WriteFile(ConfigPath(home), []byte(config), 0o600))

	token, err := LoadAccessToken(home, ProEndpoint)
	require.NoError(t, err)
	assert.Equal(t, "pro-token", token)

	_, err = LoadAccessToken(home, OrgEndpoint)
	assert.ErrorIs(t, err, ErrNoAccessToken)

	_, err = LoadAccessToken(t.TempDir(), ProEndpoint)
	assert.Error(t, err)
}
