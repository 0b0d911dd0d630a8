package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mystichronicle/visionnav-setup/internal/config"
	"github.com/mystichronicle/visionnav-setup/internal/logger"
	"github.com/mystichronicle/visionnav-setup/internal/repository/state"
	"github.com/mystichronicle/visionnav-setup/internal/service/common"
	"github.com/mystichronicle/visionnav-setup/internal/service/fetcher"
	"github.com/mystichronicle/visionnav-setup/internal/service/installer"
)

// Options contains inputs for the doctor entry point.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Profile overrides the artifact profile from settings.
	Profile string
}

// ErrChecksFailed is returned when at least one environment check fails.
var ErrChecksFailed = errors.New("environment checks failed")

// toolchainProcessNames are the binaries reported by the process check.
var toolchainProcessNames = []string{
	"visionnav-setup",
	config.DefaultDownloaderName,
	"visionnav-packager",
	"visionnav-doctor",
}

// doctor carries settings and state shared between checks.
type doctor struct {
	// cfg holds the toolchain settings.
	cfg *config.Config
	// manifest is filled by the manifest check and reused by the artifact check.
	manifest *fetcher.Manifest
}

// check couples a name with its probe.
type check struct {
	name string
	run  func(ctx context.Context) error
}

// Run diagnoses the environment in one shot: pip availability, the
// requirements manifest, the model manifest, local artifact state, the last
// recorded setup run and any toolchain processes. Every check runs even after
// failures so the report is complete; the returned error counts the failures.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "visionnav-doctor")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.Profile != "" {
		cfg.Profile = opts.Profile
	}

	d := &doctor{cfg: cfg}

	checks := []check{
		{name: "pip", run: d.checkPip},
		{name: "requirements", run: d.checkRequirements},
		{name: "manifest", run: d.checkManifest},
		{name: "artifacts", run: d.checkArtifacts},
		{name: "state", run: d.checkState},
		{name: "processes", run: d.checkProcesses},
	}

	failed := 0

	for _, c := range checks {
		if checkErr := c.run(ctx); checkErr != nil {
			failed++

			logger.ErrorKV(ctx, "Check failed", "check", c.name, "error", checkErr)

			continue
		}

		logger.InfoKV(ctx, "Check passed", "check", c.name)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrChecksFailed, failed, len(checks))
	}

	logger.Info(ctx, "All checks passed")

	return nil
}

// checkPip resolves a pip invocation and probes its version.
func (d *doctor) checkPip(ctx context.Context) error {
	inv, err := installer.Resolve(ctx, d.cfg)
	if err != nil {
		return err
	}

	name, args := inv.Command("--version")

	output, err := common.CaptureOutput(ctx, d.cfg.Timeout, name, args...)
	if err != nil {
		return err
	}

	if !strings.Contains(output, "pip") {
		return fmt.Errorf("unexpected version output: %q", output)
	}

	logger.InfoKV(ctx, "Found pip", "command", inv.String(), "version", output)

	return nil
}

// checkRequirements verifies the requirements manifest exists. Its contents
// stay opaque; only pip interprets them.
func (d *doctor) checkRequirements(ctx context.Context) error {
	if _, err := os.Stat(d.cfg.RequirementsFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", installer.ErrRequirementsMissing, d.cfg.RequirementsFile)
		}

		return fmt.Errorf("stat requirements manifest: %w", err)
	}

	logger.InfoKV(ctx, "Requirements manifest present", "path", d.cfg.RequirementsFile)

	return nil
}

// checkManifest loads the model manifest and keeps it for the artifact check.
func (d *doctor) checkManifest(ctx context.Context) error {
	manifest, err := fetcher.LoadManifestOrDefault(ctx, d.cfg.ManifestFile)
	if err != nil {
		return err
	}

	d.manifest = manifest

	logger.InfoKV(ctx, "Model manifest loaded",
		"release", manifest.Release, "models", len(manifest.Models))

	return nil
}

// checkArtifacts classifies every artifact of the configured profile.
// Missing and stale artifacts fail the check; unverified ones only warn.
func (d *doctor) checkArtifacts(ctx context.Context) error {
	if d.manifest == nil {
		return errors.New("model manifest unavailable")
	}

	names, err := d.manifest.ProfileArtifacts(d.cfg.Profile)
	if err != nil {
		return err
	}

	var notReady []string

	for _, name := range names {
		path := filepath.Join(d.cfg.ModelsDir, name)

		status, classifyErr := fetcher.ClassifyArtifact(path, d.manifest.Models[name])
		if classifyErr != nil {
			return classifyErr
		}

		if status.NeedsFetch() {
			notReady = append(notReady, name)
		}

		if status == fetcher.StatusUnverified {
			logger.WarnKV(ctx, "Artifact present but nothing pinned to verify against", "artifact", name)
			continue
		}

		logger.InfoKV(ctx, "Artifact state", "artifact", name, "status", status.String())
	}

	if len(notReady) > 0 {
		return fmt.Errorf("artifacts not ready, run %s: %s",
			config.DefaultDownloaderName, strings.Join(notReady, ", "))
	}

	return nil
}

// checkState reads the last recorded setup run. A missing state file is not
// a failure; the toolchain may simply never have run here.
func (d *doctor) checkState(ctx context.Context) error {
	repository := state.NewFileRepository(d.cfg.StateFile)

	lastRun, err := repository.Load(ctx)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			logger.Info(ctx, "No setup run recorded yet")
			return nil
		}

		return err
	}

	logger.InfoKV(ctx, "Last setup run",
		"run_id", lastRun.RunID,
		"timestamp", lastRun.Timestamp,
		"steps", len(lastRun.Steps),
		"succeeded", lastRun.Succeeded())

	return nil
}

// checkProcesses reports running toolchain processes. Informational only:
// a running fetch is legitimate, so nothing here fails the diagnosis.
func (d *doctor) checkProcesses(ctx context.Context) error {
	processes, err := common.FindProcesses(toolchainProcessNames...)
	if err != nil {
		logger.WarnKV(ctx, "Unable to inspect processes", "error", err)
		return nil
	}

	for _, process := range processes {
		logger.InfoKV(ctx, "Toolchain process running",
			"pid", process.PID, "executable", process.Executable)
	}

	return nil
}
