package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/relsetup/internal/config"
	dserrors "github.com/systmms/relsetup/internal/errors"
	"github.com/systmms/relsetup/internal/logging"
	"github.com/systmms/relsetup/internal/manifest"
	"github.com/systmms/relsetup/internal/metrics"
	"github.com/systmms/relsetup/internal/prompt"
	"github.com/systmms/relsetup/internal/setup"
	"github.com/systmms/relsetup/internal/vault"
)

// setupDeps are the collaborators the setup command builds at run time.
// Tests swap them for fakes.
type setupDeps struct {
	interactive func() bool
	renderer    func(interactive bool) prompt.Renderer
	vault       func(ctx context.Context, cfg *config.Config) (vault.Vault, error)
	clients     func(log *logging.Logger, rec *metrics.Recorder) setup.Clients
}

func defaultSetupDeps() setupDeps {
	return setupDeps{
		interactive: func() bool { return prompt.IsInteractive(os.Stdin) },
		renderer: func(interactive bool) prompt.Renderer {
			return prompt.NewHuhRendererWith(os.Stdin, os.Stderr, !interactive)
		},
		vault: func(ctx context.Context, cfg *config.Config) (vault.Vault, error) {
			return vault.New(ctx, cfg.Options.Vault, cfg.VaultOptions())
		},
		clients: setup.DefaultClients,
	}
}

// NewSetupCommand creates the setup command.
func NewSetupCommand(cfg *config.Config) *cobra.Command {
	return newSetupCommand(cfg, defaultSetupDeps())
}

func newSetupCommand(cfg *config.Config, deps setupDeps) *cobra.Command {
	var noKeychain bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Configure automated releases for the package in the current directory",
		Long: `Configure automated releases for the package in the current directory.

This command:
- Resolves the git repository of the package
- Creates an npm token (or uses --npm-token)
- Creates a GitHub token (or uses --gh-token)
- Stores both tokens in the chosen CI service
- Updates package.json with the release script and dependency`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noKeychain {
				cfg.Options.Keychain = false
			}
			if err := cfg.Load(); err != nil {
				return err
			}
			log := cfg.Logger

			store := manifest.NewFileStore(cfg.Options.Dir)
			m, err := store.Load()
			if err != nil {
				if errors.Is(err, manifest.ErrNotFound) {
					return dserrors.UserError{
						Message:    "No package.json found",
						Details:    store.Path,
						Suggestion: "Run relsetup from the package root or create a package.json first",
						Err:        err,
					}
				}
				return err
			}

			ctx := cmd.Context()
			v := vault.Vault(vault.None{})
			if cfg.Options.Keychain {
				opened, err := deps.vault(ctx, cfg)
				if err != nil {
					log.Warn("Could not open the %s vault, credentials will not be stored.", cfg.Options.Vault)
					log.Debug("%v", err)
				} else {
					v = opened
					log.Debug("using %s vault", v.Name())
				}
			}

			interactive := deps.interactive()
			if !interactive {
				log.Debug("stdin is not a terminal, using accessible prompts")
			}

			rec := metrics.NewRecorder()
			sc := setup.NewContext(cfg, prompt.NewService(deps.renderer(interactive)), v, rec)
			sc.Clients = deps.clients(log, rec)

			pipeline := setup.New(setup.NewCommitter(store))
			runErr := pipeline.Run(ctx, m, sc)

			if log.DebugEnabled() {
				lines, err := rec.Summary()
				if err != nil {
					log.Debug("metrics unavailable: %v", err)
				}
				for _, line := range lines {
					log.Debug("%s", line)
				}
			}
			if runErr != nil {
				return fmt.Errorf("setup failed: %w", runErr)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Options.Tag, "tag", "", "npm dist-tag of the release tool to pin (default \"latest\")")
	f.StringVar(&cfg.Options.HostToken, "gh-token", "", "GitHub token to use instead of logging in")
	f.StringVar(&cfg.Options.RegistryToken, "npm-token", "", "npm token to use instead of logging in")
	f.StringVar(&cfg.Options.HostUsername, "gh-username", "", "GitHub username")
	f.StringVar(&cfg.Options.RegistryUsername, "npm-username", "", "npm username")
	f.BoolVar(&cfg.Options.Keychain, "keychain", true, "Store and reuse credentials in the vault")
	f.BoolVar(&noKeychain, "no-keychain", false, "Do not store or reuse credentials")
	f.BoolVar(&cfg.Options.AskForPasswords, "ask-for-passwords", false, "Ask for passwords even when they are stored")
	f.StringVar(&cfg.Options.Vault, "vault", "", "Vault backend: auto, keyring, memory, aws or none")
	f.BoolVar(&cfg.Options.DevVersion, "dev-version", false, "Set version to "+config.DevVersion+" instead of removing it")
	cmd.MarkFlagsMutuallyExclusive("keychain", "no-keychain")

	return cmd
}
