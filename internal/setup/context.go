// Package setup runs the release-setup pipeline: an ordered list of steps
// that share one mutable Context, followed by a commit phase that rewrites
// package.json once every step has succeeded.
package setup

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/systmms/relsetup/internal/config"
	"github.com/systmms/relsetup/internal/gitremote"
	"github.com/systmms/relsetup/internal/logging"
	"github.com/systmms/relsetup/internal/metrics"
	"github.com/systmms/relsetup/internal/prompt"
	"github.com/systmms/relsetup/internal/providers/circleci"
	"github.com/systmms/relsetup/internal/providers/github"
	"github.com/systmms/relsetup/internal/providers/npm"
	"github.com/systmms/relsetup/internal/providers/travis"
	"github.com/systmms/relsetup/internal/transport"
	"github.com/systmms/relsetup/internal/vault"
)

// Repository describes the git remote.
type Repository struct {
	RemoteURL string
	// Slug and IsPrivate are only known for recognized hosts.
	Slug      *gitremote.Slug
	IsPrivate bool
	// EnterpriseEndpoint is the base URL of a GitHub Enterprise install.
	EnterpriseEndpoint string
}

// AuthMethod is how the registry credentials were obtained.
type AuthMethod string

const (
	AuthToken  AuthMethod = "token"
	AuthLegacy AuthMethod = "legacy"
)

// RegistryAuth holds the package registry credentials.
type RegistryAuth struct {
	RegistryURL string
	Method      AuthMethod
	Username    string
	Password    string
	Email       string
	Token       string
}

// HostAuth holds the source-host credentials.
type HostAuth struct {
	Endpoint      string
	Username      string
	Password      string
	Token         string
	TwoFactorCode string
	// RetryCount counts answered two-factor challenges.
	RetryCount int
}

// TravisState is what the Travis provider learned.
type TravisState struct {
	Endpoint string
	RepoID   int64
}

// ActionsState is what the GitHub Actions provider learned. Challenges
// answered while writing the secret are counted here, not in HostAuth.
type ActionsState struct {
	KeyID         string
	TwoFactorCode string
	RetryCount    int
}

// CircleState is what the CircleCI provider learned.
type CircleState struct {
	Token string
}

// CIState records the chosen CI provider and its provider-specific state.
type CIState struct {
	Provider CIKind
	Travis   *TravisState
	Actions  *ActionsState
	Circle   *CircleState
}

// Clients builds provider clients. Tests replace the constructors to point
// at local servers.
type Clients struct {
	GitHub     func(endpoint string) *github.Client
	Npm        func(registry string) *npm.Client
	Travis     func(endpoint string) *travis.Client
	CircleCI   func(token, owner, name string) *circleci.Client
	RepoExists func(ctx context.Context, webURL string) (bool, error)
}

// DefaultClients returns clients for the public endpoints, tracing through
// log and counting round-trips in rec.
func DefaultClients(log *logging.Logger, rec *metrics.Recorder) Clients {
	opts := []transport.Option{transport.WithLogger(log), transport.WithObserver(rec.HTTPResponse)}
	return Clients{
		GitHub: func(endpoint string) *github.Client {
			return github.New(endpoint, opts...)
		},
		Npm: func(registry string) *npm.Client {
			return npm.New(registry, opts...)
		},
		Travis: func(endpoint string) *travis.Client {
			return travis.New(endpoint, opts...)
		},
		CircleCI: func(token, owner, name string) *circleci.Client {
			return circleci.New(circleci.DefaultEndpoint, token, owner, name, opts...)
		},
		RepoExists: func(ctx context.Context, webURL string) (bool, error) {
			return github.New(github.DefaultEndpoint, opts...).RepoExists(ctx, webURL)
		},
	}
}

// Timing bounds the CI account-sync wait.
type Timing struct {
	SyncInterval      time.Duration
	SyncErrorInterval time.Duration
	MaxSyncPolls      int
}

// DefaultTiming polls every 300ms, backing off to 1s after an error, for at
// most 200 polls.
func DefaultTiming() Timing {
	return Timing{
		SyncInterval:      300 * time.Millisecond,
		SyncErrorInterval: time.Second,
		MaxSyncPolls:      200,
	}
}

// Context is shared by every step of one run. Options and the collaborators
// are fixed; Repository, RegistryAuth, HostAuth and CI are filled in by the
// steps that own them.
type Context struct {
	Options  config.Options
	Defaults config.Defaults
	Log      *logging.Logger
	Prompt   prompt.Asker
	Vault    vault.Vault
	Metrics  *metrics.Recorder
	Clients  Clients
	Timing   Timing

	// Clipboard reads the system clipboard; nil disables it.
	Clipboard func() (string, error)

	Repository   Repository
	RegistryAuth RegistryAuth
	HostAuth     HostAuth
	CI           CIState
}

// NewContext wires a Context with the default clients and timing.
func NewContext(cfg *config.Config, asker prompt.Asker, v vault.Vault, rec *metrics.Recorder) *Context {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	if v == nil {
		v = vault.None{}
	}
	sc := &Context{
		Options:  cfg.Options,
		Defaults: cfg.Defaults,
		Log:      log,
		Prompt:   asker,
		Vault:    v,
		Metrics:  rec,
		Clients:  DefaultClients(log, rec),
		Timing:   DefaultTiming(),

		Clipboard: clipboard.ReadAll,
	}
	sc.protectCredentials(cfg.Options.HostToken, cfg.Options.RegistryToken)
	return sc
}

// protectCredentials keeps values out of leveled log lines, including
// provider error bodies written at debug level.
func (sc *Context) protectCredentials(values ...string) {
	sc.Log.Protect(values...)
}

// clipboardText returns the trimmed clipboard contents when they are
// exactly length characters long.
func (sc *Context) clipboardText(length int) string {
	if sc.Clipboard == nil {
		return ""
	}
	text, err := sc.Clipboard()
	if err != nil {
		sc.Log.Debug("clipboard unavailable: %v", err)
		return ""
	}
	text = strings.TrimSpace(text)
	if len(text) != length {
		return ""
	}
	return text
}

// storedSecret reads the vault when stored passwords are allowed. Misses
// and vault failures both yield "".
func (sc *Context) storedSecret(ctx context.Context, service, principal string) string {
	if !sc.Options.UseStoredPasswords() || principal == "" {
		return ""
	}
	secret, err := sc.Vault.Get(ctx, vault.Service(service), principal)
	if err != nil {
		if !errors.Is(err, vault.ErrNotFound) {
			sc.Log.Debug("vault lookup for %s failed: %v", service, err)
		}
		return ""
	}
	return secret
}

// storeSecret saves a credential when the keychain is enabled. Failures
// are warnings.
func (sc *Context) storeSecret(ctx context.Context, service, principal, secret string) {
	if !sc.Options.Keychain || principal == "" || secret == "" {
		return
	}
	if err := sc.Vault.Set(ctx, vault.Service(service), principal, secret); err != nil {
		sc.Log.Warn("Could not save %s credentials to the %s vault: %v", service, sc.Vault.Name(), err)
	}
}
