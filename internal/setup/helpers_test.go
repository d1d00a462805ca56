package setup

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/systmms/relsetup/internal/config"
	"github.com/systmms/relsetup/internal/gitremote"
	"github.com/systmms/relsetup/internal/manifest"
	"github.com/systmms/relsetup/internal/metrics"
	"github.com/systmms/relsetup/internal/prompt"
	"github.com/systmms/relsetup/internal/providers/circleci"
	"github.com/systmms/relsetup/internal/providers/github"
	"github.com/systmms/relsetup/internal/providers/npm"
	"github.com/systmms/relsetup/internal/providers/travis"
	"github.com/systmms/relsetup/tests/fakes"
	"github.com/systmms/relsetup/tests/testutil"
)

type call struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

// fakeAPI serves every provider from one httptest server. Unregistered
// routes answer 404.
type fakeAPI struct {
	mu       sync.Mutex
	calls    []call
	handlers map[string]http.HandlerFunc
	srv      *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{handlers: make(map[string]http.HandlerFunc)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	key := r.Method + " " + r.URL.Path

	f.mu.Lock()
	f.calls = append(f.calls, call{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Header: r.Header.Clone(), Body: string(body)})
	h := f.handlers[key]
	f.mu.Unlock()

	if h == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h(w, r)
}

func (f *fakeAPI) on(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+path] = h
}

func (f *fakeAPI) reply(method, path string, status int, body string) {
	f.on(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func (f *fakeAPI) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeAPI) Keys() []string {
	var keys []string
	for _, c := range f.Calls() {
		keys = append(keys, c.Method+" "+c.Path)
	}
	return keys
}

func (f *fakeAPI) Count(method, path string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (f *fakeAPI) clients() Clients {
	base := f.srv.URL
	return Clients{
		GitHub:   func(string) *github.Client { return github.New(base) },
		Npm:      func(string) *npm.Client { return npm.New(base) },
		Travis:   func(string) *travis.Client { return travis.New(base) },
		CircleCI: func(token, owner, name string) *circleci.Client { return circleci.New(base, token, owner, name) },
		RepoExists: func(ctx context.Context, webURL string) (bool, error) {
			u, err := url.Parse(webURL)
			if err != nil {
				return false, err
			}
			return github.New(base).RepoExists(ctx, base+"/web"+u.Path)
		},
	}
}

type harness struct {
	api      *fakeAPI
	pkg      *testutil.PackageDir
	log      *testutil.TestLogger
	renderer *fakes.ScriptedRenderer
	vault    *fakes.FakeVault
	sc       *Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		api:      newFakeAPI(t),
		pkg:      testutil.NewPackageDir(t),
		log:      testutil.NewTestLogger(t),
		renderer: fakes.NewScriptedRenderer(),
		vault:    fakes.NewFakeVault(),
	}
	h.sc = &Context{
		Options: config.Options{
			Tag:      config.DefaultTag,
			Keychain: true,
			Dir:      h.pkg.Dir,
			Home:     h.pkg.Home,
		},
		Log:     h.log.Logger,
		Prompt:  prompt.NewService(h.renderer),
		Vault:   h.vault,
		Metrics: metrics.NewRecorder(),
		Clients: h.api.clients(),
		Timing:  Timing{SyncInterval: time.Millisecond, SyncErrorInterval: time.Millisecond, MaxSyncPolls: 5},
	}
	return h
}

func (h *harness) manifest(t *testing.T, content string) *manifest.Manifest {
	t.Helper()
	h.pkg.WriteManifest(content)
	m, err := manifest.NewFileStore(h.pkg.Dir).Load()
	require.NoError(t, err)
	return m
}

// withDebug captures debug lines too.
func (h *harness) withDebug(t *testing.T) *harness {
	h.log = testutil.NewTestLoggerWithDebug(t, true)
	h.sc.Log = h.log.Logger
	return h
}

// withSlug pretends the repository step resolved a public GitHub repo.
func (h *harness) withSlug(owner, name string) *harness {
	h.sc.Repository = Repository{
		RemoteURL: "https://github.com/" + owner + "/" + name,
		Slug:      &gitremote.Slug{Owner: owner, Name: name},
	}
	return h
}
