package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/relsetup/internal/gitremote"
	"github.com/systmms/relsetup/internal/manifest"
	"github.com/systmms/relsetup/internal/prompt"
)

// ErrRepositoryNotFound means the GitHub repository is neither reachable
// nor private.
var ErrRepositoryNotFound = errors.New("GitHub repository not found")

// RepositoryStep resolves the remote URL and classifies its host.
type RepositoryStep struct{}

func (RepositoryStep) Name() string    { return "repository" }
func (RepositoryStep) Reads() []Field  { return nil }
func (RepositoryStep) Writes() []Field { return []Field{FieldRepository} }

func (RepositoryStep) Run(ctx context.Context, m *manifest.Manifest, sc *Context) error {
	raw := m.RepositoryURL()
	if raw == "" {
		origin, err := gitremote.OriginURL(sc.Options.Dir)
		if err != nil {
			sc.Log.Error("Could not get repository url. Please create/add the repository.")
			return err
		}
		raw = origin
	}

	remote := gitremote.Normalize(raw)
	sc.Log.Debug("Detected git url: %s", remote)
	repo := Repository{RemoteURL: remote}

	if slug, ok := gitremote.ParseGitHub(remote); ok {
		repo.Slug = slug
		exists, err := sc.Clients.RepoExists(ctx, remote)
		if err != nil {
			sc.Log.Debug("existence check for %s failed: %v", remote, err)
		}
		if !exists {
			answers, err := sc.Prompt.Ask(ctx, []prompt.Question{{
				Name:    "private",
				Kind:    prompt.Confirm,
				Message: fmt.Sprintf("Could not reach %s. Is the GitHub repository private?", slug),
				Default: func(prompt.Answers) string { return "false" },
			}})
			if err != nil {
				return err
			}
			if !answers.Bool("private") {
				sc.Log.Error("Could not find repository on GitHub. Please create and add the repository.")
				return fmt.Errorf("%w: %s", ErrRepositoryNotFound, slug)
			}
			repo.IsPrivate = true
		}
		sc.Repository = repo
		return nil
	}

	sc.Log.Info("%s is not a regular GitHub URL.", remote)
	answers, err := sc.Prompt.Ask(ctx, []prompt.Question{
		{
			Name:    "enterprise",
			Kind:    prompt.Confirm,
			Message: "Are you using GitHub Enterprise?",
			Default: func(prompt.Answers) string { return "true" },
		},
		{
			Name:     "enterprise-url",
			Kind:     prompt.Input,
			Message:  "What is your GitHub Enterprise url?",
			When:     func(a prompt.Answers) bool { return a.Bool("enterprise") },
			Default:  func(prompt.Answers) string { return gitremote.BaseURL(remote) },
			Validate: prompt.URL,
		},
	})
	if err != nil {
		return err
	}
	if answers.Bool("enterprise") {
		repo.EnterpriseEndpoint = strings.TrimRight(answers.String("enterprise-url"), "/")
		if slug, ok := gitremote.ParseSlug(remote); ok {
			repo.Slug = slug
		}
	}
	sc.Repository = repo
	return nil
}
