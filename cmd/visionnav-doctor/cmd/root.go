package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mystichronicle/visionnav-setup/internal/config"
	"github.com/mystichronicle/visionnav-setup/internal/service/doctor"
	"github.com/mystichronicle/visionnav-setup/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// profile overrides the artifact profile from settings.
	profile string

	// rootCmd represents the base command for diagnosing the environment.
	rootCmd = &cobra.Command{
		Use:   "visionnav-doctor",
		Short: "Diagnose the environment without changing it",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &doctor.Options{
				ConfigPath: configPath,
				Profile:    profile,
			}

			return doctor.Run(ctx, options)
		},
	}
)

// Execute runs the visionnav-doctor CLI and exits with non-zero status on error.
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
	rootCmd.Flags().StringVarP(&profile, "profile", "p", "",
		`artifact profile to check (default "`+config.DefaultProfile+`")`)
}
