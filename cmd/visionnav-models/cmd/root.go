package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mystichronicle/visionnav-setup/internal/config"
	"github.com/mystichronicle/visionnav-setup/internal/logger"
	"github.com/mystichronicle/visionnav-setup/internal/service/fetcher"
	"github.com/mystichronicle/visionnav-setup/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// profile overrides the artifact profile from settings.
	profile string
	// refresh forces redownload of every artifact.
	refresh bool
	// logLevel adjusts logging verbosity.
	logLevel string

	// rootCmd represents the base command for downloading model artifacts.
	rootCmd = &cobra.Command{
		Use:   "visionnav-models",
		Short: "Download and verify detection model files.",
		Long: `Downloads the YOLO model artifacts described by the model manifest.

Artifacts already present and matching their pinned checksum or size are kept;
missing and stale ones are downloaded concurrently, verified and applied
atomically. Without a manifest file, a compiled-in manifest with the upstream
YOLOv3 locations is used. A marker file prevents two fetches from running at
the same time.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &fetcher.Options{
				ConfigPath: configPath,
				Profile:    profile,
				Refresh:    refresh,
			}

			return fetcher.Run(ctx, options)
		},
	}
)

// Execute runs the visionnav-models CLI and exits with non-zero status on error.
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
		`artifact profile to fetch (default "`+config.DefaultProfile+`")`)
	rootCmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "redownload artifacts even when they look current")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "logging verbosity (debug, info, warn, error)")
}
