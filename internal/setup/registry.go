package setup

import (
	"context"

	dserrors "github.com/systmms/relsetup/internal/errors"
	"github.com/systmms/relsetup/internal/manifest"
	"github.com/systmms/relsetup/internal/npmrc"
	"github.com/systmms/relsetup/internal/prompt"
	"github.com/systmms/relsetup/internal/providers/npm"
)

// ResolveRegistry picks the registry URL: the manifest's publishConfig,
// then the package scope's registry, then the configured registry, then
// the user default, then the public registry.
func ResolveRegistry(m *manifest.Manifest, rc *npmrc.Config, fallback string) string {
	if r := m.LookupString("publishConfig", "registry"); r != "" {
		return r
	}
	if rc != nil {
		if r := rc.ScopeRegistry(npmrc.Scope(m.Name())); r != "" {
			return r
		}
		if r := rc.Registry(); r != "" {
			return r
		}
	}
	if fallback != "" {
		return fallback
	}
	return npm.DefaultRegistry
}

// RegistryStep obtains a registry token.
type RegistryStep struct{}

func (RegistryStep) Name() string    { return "registry" }
func (RegistryStep) Reads() []Field  { return nil }
func (RegistryStep) Writes() []Field { return []Field{FieldRegistryAuth} }

func (RegistryStep) Run(ctx context.Context, m *manifest.Manifest, sc *Context) error {
	// an unreadable .npmrc only costs the registry and prompt defaults
	rc, err := npmrc.Load(sc.Options.Dir, sc.Options.Home)
	if err != nil {
		sc.Log.Debug("npm config unavailable: %v", err)
	}
	registry := ResolveRegistry(m, rc, sc.Defaults.Registry)

	if sc.Options.HasRegistryToken() {
		sc.RegistryAuth = RegistryAuth{
			RegistryURL: registry,
			Method:      AuthToken,
			Token:       sc.Options.RegistryToken,
		}
		sc.Log.Info("Using npm token from command line argument.")
		return nil
	}

	username := sc.Options.RegistryUsername
	stored := ""
	answers, err := sc.Prompt.Ask(ctx, []prompt.Question{
		{
			Name:     "registry",
			Kind:     prompt.Input,
			Message:  "What is your npm registry?",
			Default:  func(prompt.Answers) string { return registry },
			Validate: prompt.URL,
		},
		{
			Name:     "username",
			Kind:     prompt.Input,
			Message:  "What is your npm username?",
			When:     func(prompt.Answers) bool { return username == "" },
			Default:  func(prompt.Answers) string { return rc.Username() },
			Validate: prompt.NotEmpty,
		},
		{
			Name:     "email",
			Kind:     prompt.Input,
			Message:  "What is your npm email?",
			Default:  func(prompt.Answers) string { return rc.Email() },
			Validate: prompt.Email,
		},
		{
			Name:    "password",
			Kind:    prompt.Password,
			Message: "What is your npm password?",
			When: func(a prompt.Answers) bool {
				if a.Has("username") {
					username = a.String("username")
				}
				stored = sc.storedSecret(ctx, "npm", username)
				return stored == ""
			},
			Validate: prompt.NotEmpty,
		},
	})
	if err != nil {
		return err
	}

	auth := RegistryAuth{
		RegistryURL: answers.String("registry"),
		Method:      AuthLegacy,
		Username:    username,
		Email:       answers.String("email"),
		Password:    answers.String("password"),
	}
	if auth.Password == "" {
		auth.Password = stored
	}

	if err := rc.SaveUser(auth.Username, auth.Email); err != nil {
		sc.Log.Warn("Could not save npm config.")
		sc.Log.Debug("%v", err)
	}

	sc.protectCredentials(auth.Password)
	client := sc.Clients.Npm(auth.RegistryURL)
	req := npm.LoginRequest{Username: auth.Username, Password: auth.Password, Email: auth.Email}
	var token string
	err = sc.answerChallenges(ctx, registryChallenge(), func(code string) error {
		req.OTP = code
		t, err := client.Login(ctx, req)
		if err != nil && npm.IsConflict(err) && !req.Authenticated {
			sc.Log.Debug("npm user %s exists, logging in with credentials", req.Username)
			req.Authenticated = true
			t, err = client.Login(ctx, req)
		}
		token = t
		return err
	})
	if err != nil {
		sc.Log.Error("Could not login to npm registry. Check your credentials.")
		return dserrors.ProviderError("npm", "login", err)
	}

	sc.storeSecret(ctx, "npm", auth.Username, auth.Password)
	auth.Token = token
	sc.protectCredentials(token)
	sc.RegistryAuth = auth
	sc.Log.Info("Successfully created npm token.")
	return nil
}
