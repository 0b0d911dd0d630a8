package fetcher

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	"golang.org/x/sync/errgroup"

	"github.com/mystichronicle/visionnav-setup/internal/config"
	"github.com/mystichronicle/visionnav-setup/internal/logger"
)

// ErrFetchInProgress is returned when another fetch holds the marker file.
var ErrFetchInProgress = errors.New("a model fetch is already running")

// Options are inputs accepted by the fetcher entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Profile overrides the artifact profile from settings.
	Profile string
	// Refresh forces redownload of every artifact regardless of local state.
	Refresh bool
}

// runner holds the state and helpers for a single fetch execution.
// It is intentionally unexported—call Run(ctx, Options) from callers.
type runner struct {
	cfg                *config.Config // Toolchain settings loaded from YAML.
	manifest           *Manifest      // Model manifest (file or compiled-in).
	client             *http.Client   // HTTP client for artifact transfers.
	refresh            bool           // Redownload everything when set.
	temporaryDirectory string         // Where artifacts land before apply.
}

// download captures one artifact scheduled for transfer.
type download struct {
	name            string
	artifact        Artifact
	temporaryPath   string
	destinationPath string
}

// Run executes the model fetch lifecycle and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "visionnav-models")

	r, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	defer r.cleanup(ctx)

	if err = r.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Model fetch failed", "error", err)
		return err
	}

	logger.Info(ctx, "Model fetch completed")

	return nil
}

// newRunner loads settings and the manifest, then writes a marker to avoid
// concurrent fetch runs. The marker is created last so failed preparation
// never leaves one behind.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	if IsFetchRunningNow(ctx) {
		return nil, ErrFetchInProgress
	}

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.Profile != "" {
		cfg.Profile = opts.Profile
	}

	manifest, err := LoadManifestOrDefault(ctx, cfg.ManifestFile)
	if err != nil {
		return nil, err
	}

	fetchMarker, err := os.Create(MarkerFilename)
	if err != nil {
		return nil, err
	}

	if err = fetchMarker.Close(); err != nil {
		return nil, err
	}

	return &runner{
		cfg:      cfg,
		manifest: manifest,
		client:   http.DefaultClient,
		refresh:  opts.Refresh,
	}, nil
}

// Run executes the fetch workflow for this runner instance:
// 1) Resolve the artifact set for the configured profile.
// 2) Classify local artifacts and decide what needs downloading.
// 3) Download missing and stale artifacts concurrently.
// 4) Verify and apply downloads into the models directory.
func (r *runner) Run(ctx context.Context) error {
	names, err := r.manifest.ProfileArtifacts(r.cfg.Profile)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Fetching model artifacts",
		"release", r.manifest.Release, "profile", r.cfg.Profile, "artifacts", len(names))

	if err = os.MkdirAll(r.cfg.ModelsDir, defaultDirectoryMode); err != nil {
		return fmt.Errorf("create models directory: %w", err)
	}

	if absoluteModelsDir, absErr := filepath.Abs(r.cfg.ModelsDir); absErr == nil {
		logger.Infof(ctx, "Model files will be saved to: %s", absoluteModelsDir)
	}

	downloads, ready, err := r.plan(ctx, names)
	if err != nil {
		return err
	}

	if len(downloads) == 0 {
		logger.Infof(ctx, "Download summary: %d/%d files ready", ready, len(names))
		return nil
	}

	logger.Info(ctx, "Downloading artifacts to a temporary folder")

	if err = r.downloadAll(ctx, downloads); err != nil {
		return err
	}

	logger.Info(ctx, "Applying downloaded artifacts")

	if err = r.applyAll(ctx, downloads); err != nil {
		return err
	}

	logger.Infof(ctx, "Download summary: %d/%d files ready", ready+len(downloads), len(names))

	return nil
}

// plan classifies each artifact and returns the set to download plus the
// count of artifacts already in place.
func (r *runner) plan(ctx context.Context, names []string) ([]download, int, error) {
	if r.refresh {
		logger.Info(ctx, "Refresh requested, redownloading all profile artifacts")
	}

	downloads := make([]download, 0, len(names))
	ready := 0

	for _, name := range names {
		artifact := r.manifest.Models[name]
		destination := filepath.Join(r.cfg.ModelsDir, name)

		if !r.refresh {
			status, err := ClassifyArtifact(destination, artifact)
			if err != nil {
				return nil, 0, err
			}

			if !status.NeedsFetch() {
				logger.InfoKV(ctx, "Artifact already present, skipping",
					"artifact", name, "status", status.String())

				ready++

				continue
			}

			logger.InfoKV(ctx, "Scheduling download", "artifact", name, "status", status.String())
		}

		downloads = append(downloads, download{
			name:            name,
			artifact:        artifact,
			destinationPath: destination,
		})
	}

	return downloads, ready, nil
}

// downloadAll transfers artifacts into a temporary directory with bounded
// concurrency. The first failure cancels the remaining transfers.
func (r *runner) downloadAll(ctx context.Context, downloads []download) error {
	temporaryDirectory, err := os.MkdirTemp("", "visionnav-fetch-")
	if err != nil {
		return err
	}

	r.temporaryDirectory = temporaryDirectory

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.MaxConcurrentDownloads)

	for i := range downloads {
		d := &downloads[i]
		d.temporaryPath = filepath.Join(temporaryDirectory, d.name)

		group.Go(func() error {
			return r.downloadArtifact(groupCtx, d.name, d.artifact, d.temporaryPath)
		})
	}

	return group.Wait()
}

// applyAll verifies and moves downloaded artifacts into the models directory.
func (r *runner) applyAll(ctx context.Context, downloads []download) error {
	for i := range downloads {
		if err := r.applyArtifact(ctx, &downloads[i]); err != nil {
			return fmt.Errorf("apply %s: %w", downloads[i].name, err)
		}
	}

	return nil
}

// applyArtifact atomically replaces the destination with the downloaded
// file, verifying the pinned checksum when one exists.
func (r *runner) applyArtifact(ctx context.Context, d *download) error {
	logger.InfoKV(ctx, "Updating artifact", "artifact", d.name)

	options := goupdate.Options{
		TargetPath: d.destinationPath,
		TargetMode: DefaultFileMode,
	}

	if d.artifact.SHA256 != "" {
		checksum, err := hex.DecodeString(d.artifact.SHA256)
		if err != nil {
			return fmt.Errorf("decode pinned checksum: %w", err)
		}

		options.Checksum = checksum
		options.Hash = DefaultChecksumFunction
	} else {
		logger.WarnKV(ctx, "No checksum pinned, applying without verification", "artifact", d.name)
	}

	if _, err := os.Stat(d.destinationPath); errors.Is(err, os.ErrNotExist) {
		placeholder, createErr := os.Create(d.destinationPath)
		if createErr != nil {
			return createErr
		}

		if createErr = placeholder.Close(); createErr != nil {
			return createErr
		}
	}

	downloadedFile, err := os.Open(d.temporaryPath)
	if err != nil {
		return err
	}

	defer func() {
		_ = downloadedFile.Close()
	}()

	if err = goupdate.Apply(downloadedFile, options); err != nil {
		return err
	}

	// Remove the backup go-update leaves behind.
	oldFileName := d.destinationPath + ".old"
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}

// cleanup removes temporary artifacts and the running marker.
func (r *runner) cleanup(ctx context.Context) {
	if _, err := os.Stat(MarkerFilename); err == nil {
		_ = os.Remove(MarkerFilename)
	}

	if r.temporaryDirectory != "" {
		if _, err := os.Stat(r.temporaryDirectory); err == nil {
			_ = os.RemoveAll(r.temporaryDirectory)
		}
	}

	logger.Info(ctx, "The model fetcher has been stopped")
}
