package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/relsetup/internal/manifest"
	"github.com/systmms/relsetup/internal/prompt"
	"github.com/systmms/relsetup/internal/providers/travis"
)

// CIKind selects a CI provider.
type CIKind int

const (
	TravisOrg CIKind = iota
	TravisPro
	TravisEnterprise
	CircleCI
	GitHubActions
	PrintTokens
)

var ciLabels = map[CIKind]string{
	TravisOrg:        "Travis CI",
	TravisPro:        "Travis CI Pro",
	TravisEnterprise: "Travis CI Enterprise",
	CircleCI:         "Circle CI",
	GitHubActions:    "Github Actions",
	PrintTokens:      "Other (prints tokens)",
}

// CIKinds lists every provider in menu order.
func CIKinds() []CIKind {
	return []CIKind{TravisOrg, TravisPro, TravisEnterprise, CircleCI, GitHubActions, PrintTokens}
}

func (k CIKind) String() string {
	if label, ok := ciLabels[k]; ok {
		return label
	}
	return fmt.Sprintf("CIKind(%d)", int(k))
}

// ParseCIKind accepts a menu label or a short name such as "circleci".
func ParseCIKind(s string) (CIKind, bool) {
	short := map[string]CIKind{
		"travis":            TravisOrg,
		"travis-pro":        TravisPro,
		"travis-enterprise": TravisEnterprise,
		"circleci":          CircleCI,
		"github-actions":    GitHubActions,
		"print":             PrintTokens,
	}
	if k, ok := short[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, true
	}
	for k, label := range ciLabels {
		if label == s {
			return k, true
		}
	}
	return 0, false
}

// CIProvider configures one CI service.
type CIProvider interface {
	Setup(ctx context.Context, sc *Context) error
}

// ErrNoSlug means the provider needs an owner/name the repository step
// could not determine.
var ErrNoSlug = errors.New("repository owner/name is unknown")

// NewCIProvider returns the provider for kind. endpoint is only used by
// TravisEnterprise.
func NewCIProvider(kind CIKind, endpoint string) (CIProvider, error) {
	switch kind {
	case TravisOrg:
		return &travisProvider{endpoint: travis.OrgEndpoint}, nil
	case TravisPro:
		return &travisProvider{endpoint: travis.ProEndpoint}, nil
	case TravisEnterprise:
		if endpoint == "" {
			return nil, fmt.Errorf("travis enterprise requires an endpoint")
		}
		return &travisProvider{endpoint: strings.TrimRight(endpoint, "/")}, nil
	case CircleCI:
		return &circleProvider{}, nil
	case GitHubActions:
		return &actionsProvider{}, nil
	case PrintTokens:
		return &printProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown CI provider %s", kind)
	}
}

// CIStep configures the chosen CI provider with the collected secrets.
type CIStep struct{}

func (CIStep) Name() string    { return "ci" }
func (CIStep) Reads() []Field  { return []Field{FieldRepository, FieldRegistryAuth, FieldHostAuth} }
func (CIStep) Writes() []Field { return []Field{FieldCI} }

func (CIStep) Run(ctx context.Context, _ *manifest.Manifest, sc *Context) error {
	sc.protectCredentials(sc.HostAuth.Token, sc.HostAuth.Password, sc.RegistryAuth.Token, sc.RegistryAuth.Password)

	def := TravisOrg
	if sc.Repository.IsPrivate {
		def = TravisPro
	}
	if k, ok := ParseCIKind(sc.Defaults.CI); ok {
		def = k
	}

	choices := make([]string, 0, len(ciLabels))
	for _, k := range CIKinds() {
		choices = append(choices, k.String())
	}

	answers, err := sc.Prompt.Ask(ctx, []prompt.Question{
		{
			Name:    "ci",
			Kind:    prompt.Select,
			Message: "What CI are you using?",
			Choices: choices,
			Default: func(prompt.Answers) string { return def.String() },
		},
		{
			Name:     "travis-endpoint",
			Kind:     prompt.Input,
			Message:  "What is your Travis CI enterprise url?",
			When:     func(a prompt.Answers) bool { return a.String("ci") == TravisEnterprise.String() },
			Default:  func(prompt.Answers) string { return sc.Defaults.TravisEnterpriseURL },
			Validate: prompt.URL,
		},
	})
	if err != nil {
		return err
	}

	kind, ok := ParseCIKind(answers.String("ci"))
	if !ok {
		return fmt.Errorf("unknown CI provider %q", answers.String("ci"))
	}
	provider, err := NewCIProvider(kind, answers.String("travis-endpoint"))
	if err != nil {
		return err
	}

	sc.CI = CIState{Provider: kind}
	sc.Log.Debug("configuring %s", kind)
	return provider.Setup(ctx, sc)
}

func requireSlug(sc *Context) error {
	if sc.Repository.Slug == nil {
		return fmt.Errorf("%w for %s", ErrNoSlug, sc.Repository.RemoteURL)
	}
	return nil
}
