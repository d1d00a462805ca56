package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/systmms/relsetup/cmd/relsetup/commands"
	"github.com/systmms/relsetup/internal/config"
	dserrors "github.com/systmms/relsetup/internal/errors"
	"github.com/systmms/relsetup/internal/logging"
	"github.com/systmms/relsetup/internal/secure"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := run()
	secure.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", dserrors.SimplifyError(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "relsetup",
		Short: "Set up automated releases for a package",
		Long: `relsetup configures a package for automated semantic releases: it collects
registry and GitHub credentials, wires them into your CI service and
updates package.json.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Logger = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Options.Debug, cfg.Options.NoColor)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&cfg.Options.NoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&cfg.Options.Debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfg.DefaultsPath, "defaults", "", "Defaults file path (default $XDG_CONFIG_HOME/relsetup/config.yaml)")

	rootCmd.AddCommand(
		commands.NewSetupCommand(cfg),
		commands.NewDoctorCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.ExecuteContext(ctx)
}
