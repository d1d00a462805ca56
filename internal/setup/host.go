package setup

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	dserrors "github.com/systmms/relsetup/internal/errors"
	"github.com/systmms/relsetup/internal/logging"
	"github.com/systmms/relsetup/internal/manifest"
	"github.com/systmms/relsetup/internal/prompt"
	"github.com/systmms/relsetup/internal/providers/github"
)

// Host authentication methods offered to the user.
const (
	MethodPAT      = "Personal access token"
	MethodPassword = "Username and password"
)

// length of a classic personal access token
const patLength = 40

// principal under which a personal access token is stored
const tokenPrincipal = "token"

// HostStep obtains a GitHub token.
type HostStep struct{}

func (HostStep) Name() string    { return "host" }
func (HostStep) Reads() []Field  { return []Field{FieldRepository} }
func (HostStep) Writes() []Field { return []Field{FieldHostAuth} }

func (HostStep) Run(ctx context.Context, m *manifest.Manifest, sc *Context) error {
	endpoint := github.APIEndpoint(sc.Repository.EnterpriseEndpoint)

	if sc.Options.HasHostToken() {
		sc.HostAuth = HostAuth{Endpoint: endpoint, Token: sc.Options.HostToken}
		sc.Log.Info("Using GitHub token %s from command line argument.", logging.Mask(sc.Options.HostToken))
		return nil
	}

	storedToken := sc.storedSecret(ctx, "github", tokenPrincipal)
	username := sc.Options.HostUsername
	storedPassword := ""

	answers, err := sc.Prompt.Ask(ctx, []prompt.Question{
		{
			Name:    "github-method",
			Kind:    prompt.Select,
			Message: "How do you want to authenticate with GitHub?",
			Choices: []string{MethodPAT, MethodPassword},
			Default: func(prompt.Answers) string {
				if username != "" {
					return MethodPassword
				}
				return MethodPAT
			},
		},
		{
			Name:     "github-token",
			Kind:     prompt.Password,
			Message:  "Provide a GitHub Personal Access Token (create a token at https://github.com/settings/tokens/new?scopes=repo)",
			When:     func(a prompt.Answers) bool { return a.String("github-method") == MethodPAT && storedToken == "" },
			Default:  func(prompt.Answers) string { return sc.clipboardText(patLength) },
			Validate: prompt.Length(patLength),
		},
		{
			Name:     "github-username",
			Kind:     prompt.Input,
			Message:  "What is your GitHub username?",
			When:     func(a prompt.Answers) bool { return a.String("github-method") == MethodPassword && username == "" },
			Validate: prompt.NotEmpty,
		},
		{
			Name:    "github-password",
			Kind:    prompt.Password,
			Message: "What is your GitHub password?",
			When: func(a prompt.Answers) bool {
				if a.String("github-method") != MethodPassword {
					return false
				}
				if a.Has("github-username") {
					username = a.String("github-username")
				}
				storedPassword = sc.storedSecret(ctx, "github", username)
				return storedPassword == ""
			},
			Validate: prompt.NotEmpty,
		},
	})
	if err != nil {
		return err
	}

	// Token stays empty until authentication succeeds.
	sc.HostAuth = HostAuth{Endpoint: endpoint}
	creds := github.Credentials{}
	principal, secret := "", ""
	if answers.String("github-method") == MethodPAT {
		creds.Token = answers.String("github-token")
		if creds.Token == "" {
			creds.Token = storedToken
		}
		principal, secret = tokenPrincipal, creds.Token
	} else {
		creds.Username = username
		creds.Password = answers.String("github-password")
		if creds.Password == "" {
			creds.Password = storedPassword
		}
		creds.Note = tokenNote(m.Name())
		sc.Log.Debug("authenticating %s with password %s", creds.Username, logging.Secret(creds.Password))
		sc.HostAuth.Username = creds.Username
		sc.HostAuth.Password = creds.Password
		principal, secret = creds.Username, creds.Password
	}

	sc.protectCredentials(creds.Token, creds.Password)

	client := sc.Clients.GitHub(endpoint)
	var token string
	onCode := func(code string) {
		sc.HostAuth.TwoFactorCode = code
		sc.HostAuth.RetryCount++
	}
	err = sc.answerChallenges(ctx, hostChallenge(onCode), func(code string) error {
		creds.OTP = code
		t, err := client.Authenticate(ctx, creds)
		token = t
		return err
	})
	if err != nil {
		sc.Log.Error("Could not login to GitHub. Check your credentials.")
		return dserrors.ProviderError("github", "authentication", err)
	}

	sc.storeSecret(ctx, "github", principal, secret)
	sc.HostAuth.Token = token
	sc.protectCredentials(token)
	sc.Log.Info("Successfully created GitHub token.")
	return nil
}

// tokenNote labels a created token; GitHub requires notes to be unique.
func tokenNote(pkg string) string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	if pkg == "" {
		pkg = "package"
	}
	return fmt.Sprintf("relsetup-%s-%s", pkg, hex.EncodeToString(b))
}
