package setup

import (
	"context"

	dserrors "github.com/systmms/relsetup/internal/errors"
	"github.com/systmms/relsetup/internal/prompt"
	"github.com/systmms/relsetup/internal/providers/circleci"
)

const circleTokenPrincipal = "token"

type circleProvider struct{}

func (p *circleProvider) Setup(ctx context.Context, sc *Context) error {
	if err := requireSlug(sc); err != nil {
		return err
	}
	slug := sc.Repository.Slug
	stored := sc.storedSecret(ctx, "circleci", circleTokenPrincipal)
	configExists := circleci.ConfigExists(sc.Options.Dir)

	answers, err := sc.Prompt.Ask(ctx, []prompt.Question{
		{
			Name:     "circle-token",
			Kind:     prompt.Password,
			Message:  "What is your CircleCI API token?",
			When:     func(prompt.Answers) bool { return stored == "" },
			Default:  func(prompt.Answers) string { return sc.clipboardText(circleci.TokenLength) },
			Validate: prompt.Length(circleci.TokenLength),
		},
		{
			Name:    "circle-config",
			Kind:    prompt.Confirm,
			Message: "Do you want a `config.yml` file with semantic-release setup?",
			Default: func(prompt.Answers) string { return "true" },
		},
		{
			Name:    "circle-overwrite",
			Kind:    prompt.Confirm,
			Message: "Do you want to overwrite the existing `config.yml`?",
			Default: func(prompt.Answers) string { return "false" },
			When:    func(a prompt.Answers) bool { return a.Bool("circle-config") && configExists },
		},
	})
	if err != nil {
		return err
	}

	token := answers.String("circle-token")
	if token == "" {
		token = stored
	} else {
		sc.storeSecret(ctx, "circleci", circleTokenPrincipal, token)
	}
	sc.protectCredentials(token)
	sc.CI.Circle = &CircleState{Token: token}

	client := sc.Clients.CircleCI(token, slug.Owner, slug.Name)
	sc.Log.Debug("Following repo %s on CircleCI...", slug)
	if err := client.Follow(ctx); err != nil {
		sc.Log.Error("Error following repo on CircleCI!")
		return dserrors.ProviderError("circleci", "follow", err)
	}
	sc.Log.Info("Successfully followed repo %s on CircleCI.", slug)

	vars := [][2]string{{"GH_TOKEN", sc.HostAuth.Token}}
	if sc.RegistryAuth.Method == AuthToken {
		vars = append(vars, [2]string{"NPM_TOKEN", sc.RegistryAuth.Token})
	} else {
		vars = append(vars,
			[2]string{"NPM_USERNAME", sc.RegistryAuth.Username},
			[2]string{"NPM_PASSWORD", sc.RegistryAuth.Password},
			[2]string{"NPM_EMAIL", sc.RegistryAuth.Email},
		)
	}
	for _, v := range vars {
		if err := client.SetEnvVar(ctx, v[0], v[1]); err != nil {
			sc.Log.Error("Error setting environment variables on CircleCI!")
			return dserrors.ProviderError("circleci", "setting "+v[0], err)
		}
		sc.Log.Info("Successfully added environment variable %s to CircleCI project.", v[0])
	}

	if !answers.Bool("circle-config") || (configExists && !answers.Bool("circle-overwrite")) {
		sc.Log.Debug("Config file creation skipped.")
		return nil
	}
	if err := circleci.WriteConfig(sc.Options.Dir); err != nil {
		return err
	}
	sc.Log.Info("Successfully written `./.circleci/config.yml`.")
	return nil
}
