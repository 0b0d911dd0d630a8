package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mystichronicle/visionnav-setup/internal/config"
	domain "github.com/mystichronicle/visionnav-setup/internal/domain/bootstrap"
	"github.com/mystichronicle/visionnav-setup/internal/logger"
	"github.com/mystichronicle/visionnav-setup/internal/repository/state"
	"github.com/mystichronicle/visionnav-setup/internal/service/common"
	"github.com/mystichronicle/visionnav-setup/internal/service/fetcher"
	"github.com/mystichronicle/visionnav-setup/internal/service/installer"
)

// Options controls which bootstrap steps run and where settings come from.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// SkipInstall marks the dependency installation step as skipped.
	SkipInstall bool
	// SkipModels marks the model fetch step as skipped.
	SkipModels bool
}

// Step names as recorded in the state file.
const (
	// StepInstallRequirements installs Python dependencies via pip.
	StepInstallRequirements = "install-requirements"
	// StepFetchModels runs the external model downloader.
	StepFetchModels = "fetch-models"
)

// step couples a recorded name and user-facing announcement with its action.
type step struct {
	name     string
	announce string
	skip     bool
	action   func(ctx context.Context) error
}

// Run executes the bootstrap sequence: install Python dependencies, then
// fetch the detection model files. Steps run strictly in order and the first
// failure halts the run; the failed step is recorded and later steps never
// start. Every run is persisted to the state file regardless of outcome.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "visionnav-setup")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	runID := uuid.NewString()
	ctx = logger.WithKV(ctx, "run_id", runID)

	runState := &domain.State{
		RunID:     runID,
		Timestamp: time.Now(),
	}

	// The actor is audit metadata; a detection failure must not block setup.
	if actor, actorErr := common.DetectActor(); actorErr == nil {
		runState.Actor = actor
	} else {
		logger.WarnKV(ctx, "Unable to detect actor", "error", actorErr)
	}

	// Record which model release this run targets, when the manifest is readable.
	if manifest, manifestErr := fetcher.LoadManifestOrDefault(ctx, cfg.ManifestFile); manifestErr == nil {
		runState.Release = manifest.Release
	}

	repository := state.NewFileRepository(cfg.StateFile)

	// State persistence is best-effort: the run outcome is what matters.
	defer func() {
		if saveErr := repository.Save(ctx, runState); saveErr != nil {
			logger.WarnKV(ctx, "Unable to record setup state", "error", saveErr)
		}
	}()

	steps := []step{
		{
			name:     StepInstallRequirements,
			announce: "Installing Python dependencies",
			skip:     opts.SkipInstall,
			action: func(stepCtx context.Context) error {
				return installer.Install(stepCtx, cfg)
			},
		},
		{
			name:     StepFetchModels,
			announce: "Fetching detection model files",
			skip:     opts.SkipModels,
			action: func(stepCtx context.Context) error {
				return runDownloader(stepCtx, cfg, opts.ConfigPath)
			},
		},
	}

	for _, s := range steps {
		if s.skip {
			logger.Infof(ctx, "Skipping step: %s", s.name)

			runState.RecordStep(domain.StepResult{
				Name:   s.name,
				Status: domain.StepSkipped,
			})

			continue
		}

		logger.Info(ctx, s.announce)

		started := time.Now()

		if err = s.action(ctx); err != nil {
			runState.RecordStep(domain.StepResult{
				Name:     s.name,
				Status:   domain.StepFailed,
				Error:    err.Error(),
				Duration: time.Since(started),
			})

			return fmt.Errorf("%s: %w", s.name, err)
		}

		runState.RecordStep(domain.StepResult{
			Name:     s.name,
			Status:   domain.StepOK,
			Duration: time.Since(started),
		})
	}

	logger.Info(ctx, "Setup completed successfully")

	return nil
}

// runDownloader launches the model downloader as a subprocess so the fetch
// can also be run standalone. Downloader output reaches the user unmodified.
func runDownloader(ctx context.Context, cfg *config.Config, configPath string) error {
	executable, err := common.ResolveExecutable(cfg.Downloader)
	if err != nil {
		return err
	}

	// The default invocation stays argument-free; an explicitly chosen
	// settings file is forwarded so both processes read the same one.
	var args []string
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	logger.InfoKV(ctx, "Launching model downloader", "command", common.CommandLine(executable, args))

	if err = common.RunPassthrough(ctx, executable, args...); err != nil {
		return fmt.Errorf("fetch models: %w", err)
	}

	return nil
}
