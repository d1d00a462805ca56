package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/relsetup/internal/config"
	"github.com/systmms/relsetup/internal/gitremote"
	"github.com/systmms/relsetup/internal/manifest"
	"github.com/systmms/relsetup/internal/npmrc"
	"github.com/systmms/relsetup/internal/providers/travis"
	"github.com/systmms/relsetup/internal/setup"
	"github.com/systmms/relsetup/internal/vault"
)

// Check is the outcome of one doctor check.
type Check struct {
	Name        string
	Status      string // ok, warn, error
	Message     string
	Suggestions []string
}

func (c Check) failed() bool { return c.Status == "error" }

// NewDoctorCommand creates the doctor command. It never writes anything.
func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the package and environment are ready for setup",
		Long: `Verify that relsetup can run in the current directory.

This command checks:
- package.json presence and validity
- Git remote and GitHub repository detection
- Vault (keychain) availability
- npm registry resolution
- Travis CLI credentials`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				cfg.Logger.Error("Configuration error: %v", err)
				return fmt.Errorf("failed to load config: %w", err)
			}

			checks := runChecks(cmd.Context(), cfg)
			out := cmd.OutOrStdout()
			displayChecks(out, checks, verbose)

			ok := 0
			for _, c := range checks {
				if !c.failed() {
					ok++
				}
			}
			_, _ = fmt.Fprintf(out, "\nSummary: %d/%d checks passed\n", ok, len(checks))
			if ok < len(checks) {
				return fmt.Errorf("some checks failed")
			}
			cfg.Logger.Info("Ready for setup.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show suggestions for failed checks")

	return cmd
}

func runChecks(ctx context.Context, cfg *config.Config) []Check {
	m, manifestCheck := checkManifest(cfg)
	checks := []Check{manifestCheck, checkRemote(cfg, m)}
	checks = append(checks, checkVault(ctx, cfg), checkRegistry(cfg, m), checkTravis(cfg))
	return checks
}

func checkManifest(cfg *config.Config) (*manifest.Manifest, Check) {
	c := Check{Name: "manifest"}
	m, err := manifest.NewFileStore(cfg.Options.Dir).Load()
	if err != nil {
		c.Status, c.Message = "error", err.Error()
		if errors.Is(err, manifest.ErrNotFound) {
			c.Suggestions = []string{"Run relsetup from the package root", "Create one with: npm init"}
		}
		return nil, c
	}
	if err := manifest.ValidateRelease(m); err != nil {
		c.Status, c.Message = "error", err.Error()
		c.Suggestions = []string{"Fix the listed package.json fields before running setup"}
		return m, c
	}
	if err := manifest.Validate(m); err != nil {
		c.Status, c.Message = "warn", err.Error()
		c.Suggestions = []string{"Setup will run, but npm rejects this package name on publish"}
		return m, c
	}
	c.Status, c.Message = "ok", m.Name()
	return m, c
}

func checkRemote(cfg *config.Config, m *manifest.Manifest) Check {
	c := Check{Name: "repository"}
	raw := ""
	if m != nil {
		raw = m.RepositoryURL()
	}
	if raw == "" {
		origin, err := gitremote.OriginURL(cfg.Options.Dir)
		if err != nil {
			c.Status, c.Message = "error", err.Error()
			c.Suggestions = []string{"Add a remote with: git remote add origin <url>"}
			return c
		}
		raw = origin
	}

	remote := gitremote.Normalize(raw)
	if slug, ok := gitremote.ParseGitHub(remote); ok {
		c.Status, c.Message = "ok", "github.com/"+slug.String()
		return c
	}
	c.Status, c.Message = "warn", remote+" is not a github.com repository"
	c.Suggestions = []string{"setup will ask for your GitHub Enterprise url"}
	return c
}

func checkVault(ctx context.Context, cfg *config.Config) Check {
	c := Check{Name: "vault"}
	v, err := vault.New(ctx, cfg.Options.Vault, cfg.VaultOptions())
	if err != nil {
		c.Status, c.Message = "warn", err.Error()
		c.Suggestions = []string{"Pass --no-keychain or choose another backend with --vault"}
		return c
	}
	c.Status, c.Message = "ok", v.Name()
	return c
}

func checkRegistry(cfg *config.Config, m *manifest.Manifest) Check {
	c := Check{Name: "registry"}
	rc, err := npmrc.Load(cfg.Options.Dir, cfg.Options.Home)
	if err != nil {
		c.Status, c.Message = "error", err.Error()
		c.Suggestions = []string{"Check the syntax of " + npmrc.UserPath(cfg.Options.Home)}
		return c
	}
	if m == nil {
		m = manifest.New(nil)
	}
	c.Status, c.Message = "ok", setup.ResolveRegistry(m, rc, cfg.Defaults.Registry)
	if u := rc.Username(); u != "" {
		c.Message += " (user " + u + ")"
	}
	return c
}

func checkTravis(cfg *config.Config) Check {
	c := Check{Name: "travis"}
	var found []string
	for _, ep := range []string{travis.OrgEndpoint, travis.ProEndpoint, cfg.Defaults.TravisEnterpriseURL} {
		if ep == "" {
			continue
		}
		if _, err := travis.LoadAccessToken(cfg.Options.Home, ep); err == nil {
			found = append(found, ep)
		}
	}
	if len(found) == 0 {
		c.Status, c.Message = "warn", "no travis CLI token"
		c.Suggestions = []string{"setup logs in with your GitHub token instead"}
		return c
	}
	c.Status, c.Message = "ok", fmt.Sprintf("token for %v", found)
	return c
}

// displayChecks shows the checks in a formatted table
func displayChecks(out io.Writer, checks []Check, verbose bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "CHECK\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-----\t------\t-------\n")

	for _, c := range checks {
		status := c.Status
		switch c.Status {
		case "ok":
			status = "✓ " + status
		case "error":
			status = "✗ " + status
		default:
			status = "⚠ " + status
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, status, firstLine(c.Message))
	}
	_ = w.Flush()

	if !verbose {
		return
	}
	for _, c := range checks {
		if c.Status == "ok" || len(c.Suggestions) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(out, "\n%s suggestions:\n", c.Name)
		for _, s := range c.Suggestions {
			_, _ = fmt.Fprintf(out, "  • %s\n", s)
		}
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
