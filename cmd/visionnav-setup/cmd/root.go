package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mystichronicle/visionnav-setup/internal/config"
	"github.com/mystichronicle/visionnav-setup/internal/service/setup"
	"github.com/mystichronicle/visionnav-setup/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// skipInstall marks the dependency installation step as skipped.
	skipInstall bool
	// skipModels marks the model fetch step as skipped.
	skipModels bool

	// rootCmd represents the base command for bootstrapping the vision stack.
	rootCmd = &cobra.Command{
		Use:   "visionnav-setup",
		Short: "Install Python dependencies and fetch detection model files.",
		Long: `Bootstraps a machine for the vision navigation stack in two fixed steps.

First installs the Python dependencies listed in the requirements manifest
through pip, then launches the model downloader to fetch the YOLO detection
files. The sequence halts on the first failure, so models are never fetched
into an environment whose dependencies did not install.

Runs with no arguments using built-in defaults; a settings file is only
needed to override paths, profiles or mirrors. Every run is recorded to a
JSON state file for later inspection.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &setup.Options{
				ConfigPath:  configPath,
				SkipInstall: skipInstall,
				SkipModels:  skipModels,
			}

			return setup.Run(ctx, options)
		},
	}
)

// Execute runs the visionnav-setup CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "",
		`path to configuration file (default "`+config.DefaultConfigFilename+`")`)
	rootCmd.Flags().BoolVar(&skipInstall, "skip-install", false, "skip the dependency installation step")
	rootCmd.Flags().BoolVar(&skipModels, "skip-models", false, "skip the model fetch step")
}
