package setup

import (
	"context"

	dserrors "github.com/systmms/relsetup/internal/errors"
	"github.com/systmms/relsetup/internal/providers/github"
)

// ActionsSecretName is the repository secret holding the registry token.
const ActionsSecretName = "NPM_TOKEN"

type actionsProvider struct{}

func (p *actionsProvider) Setup(ctx context.Context, sc *Context) error {
	if err := requireSlug(sc); err != nil {
		return err
	}
	slug := sc.Repository.Slug
	endpoint := sc.HostAuth.Endpoint
	if endpoint == "" {
		endpoint = github.APIEndpoint(sc.Repository.EnterpriseEndpoint)
	}
	client := sc.Clients.GitHub(endpoint)
	creds := github.Credentials{Token: sc.HostAuth.Token}
	state := &ActionsState{}
	sc.CI.Actions = state
	onCode := func(code string) {
		state.TwoFactorCode = code
		state.RetryCount++
	}

	err := sc.answerChallenges(ctx, hostChallenge(onCode), func(code string) error {
		creds.OTP = code
		key, err := client.ActionsPublicKey(ctx, creds, slug.Owner, slug.Name)
		if err != nil {
			return err
		}
		sealed, err := github.SealSecret(sc.RegistryAuth.Token, key.Key)
		if err != nil {
			return err
		}
		state.KeyID = key.KeyID
		return client.PutActionsSecret(ctx, creds, slug.Owner, slug.Name, ActionsSecretName, sealed, key.KeyID)
	})
	if err != nil {
		sc.Log.Error("Can't add the %s secret to GitHub Actions. Please add it manually.", ActionsSecretName)
		return dserrors.ProviderError("github", "creating the "+ActionsSecretName+" secret", err)
	}
	sc.Log.Info("Successfully created GitHub Actions %s secret.", ActionsSecretName)
	return nil
}
