package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mystichronicle/visionnav-setup/internal/config"
	"github.com/mystichronicle/visionnav-setup/internal/service/packager"
	"github.com/mystichronicle/visionnav-setup/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// release overrides the release tag recorded in the manifest.
	release string

	// rootCmd represents the base command for preparing a model mirror manifest.
	rootCmd = &cobra.Command{
		Use:   "visionnav-packager [models-dir] [base-url]",
		Short: "Pin checksums and mirror URLs into a model manifest",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &packager.Options{
				ConfigPath: configPath,
				ModelsDir:  args[0],
				BaseURL:    args[1],
				Release:    release,
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the visionnav-packager CLI and exits with non-zero status on error.
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
	rootCmd.Flags().StringVar(&release, "release", "", "release tag to record in the manifest")
}
