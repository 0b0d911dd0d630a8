package packager

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mystichronicle/visionnav-setup/internal/config"
	"github.com/mystichronicle/visionnav-setup/internal/logger"
	"github.com/mystichronicle/visionnav-setup/internal/service/fetcher"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// ModelsDir is the directory holding the artifacts to publish.
	ModelsDir string
	// BaseURL is where the artifacts will be uploaded; it becomes the URL
	// prefix of every manifest entry.
	BaseURL string
	// Release overrides the release tag recorded in the manifest.
	Release string
}

// packager pins checksums and mirror URLs into a model manifest.
// It is unexported—callers should use Run, which encapsulates setup and validation.
type packager struct {
	// cfg holds the toolchain settings, of which only the manifest path is used.
	cfg *config.Config
	// manifest is the model manifest being rewritten for the mirror.
	manifest *fetcher.Manifest
	// modelsDir is where local artifacts are read from.
	modelsDir string
	// baseURL is the mirror location artifacts will be uploaded to.
	baseURL string
}

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "visionnav-packager")

	pkg, err := newPackager(ctx, opts)
	if err != nil {
		return fmt.Errorf("initialize packager: %w", err)
	}

	if err = pkg.Run(ctx); err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Packager completed successfully")

	return nil
}

// newPackager loads settings and the manifest after making sure no fetch is
// mutating the artifacts being hashed.
func newPackager(ctx context.Context, opts *Options) (*packager, error) {
	if fetcher.IsFetchRunningNow(ctx) {
		return nil, fetcher.ErrFetchInProgress
	}

	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	manifest, err := fetcher.LoadManifestOrDefault(ctx, cfg.ManifestFile)
	if err != nil {
		return nil, err
	}

	if opts.Release != "" {
		manifest.Release = opts.Release
	}

	return &packager{
		cfg:       cfg,
		manifest:  manifest,
		modelsDir: opts.ModelsDir,
		baseURL:   opts.BaseURL,
	}, nil
}

// Run pins every profile artifact and writes the manifest to disk.
func (p *packager) Run(ctx context.Context) error {
	logger.Info(ctx, "Preparing model manifest")

	if err := p.fillManifest(ctx); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Saving model manifest", "path", p.cfg.ManifestFile)

	if err := fetcher.SaveManifest(p.cfg.ManifestFile, p.manifest); err != nil {
		return err
	}

	p.printNextSteps(ctx)

	return nil
}

// fillManifest stats and hashes every artifact referenced by the profiles,
// pinning checksum, size and mirror URL. A mirror serves all profiles, so
// every referenced artifact must exist locally.
func (p *packager) fillManifest(ctx context.Context) error {
	for _, name := range p.artifactNames() {
		fileName := filepath.Join(p.modelsDir, name)

		info, err := os.Stat(fileName)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", fileName, os.ErrNotExist)
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", fileName, err)
		}

		checksum, err := fetcher.FileChecksum(fileName)
		if err != nil {
			return err
		}

		mirrorURL, err := p.artifactURL(name)
		if err != nil {
			return err
		}

		artifact := p.manifest.Models[name]
		artifact.URL = mirrorURL
		artifact.SHA256 = checksum
		artifact.Size = info.Size()
		p.manifest.Models[name] = artifact

		logger.InfoKV(ctx, "Pinned artifact", "artifact", name, "size", info.Size())
	}

	return nil
}

// artifactNames returns the sorted union of all profile artifacts.
func (p *packager) artifactNames() []string {
	seen := make(map[string]struct{})

	for _, names := range p.manifest.Profiles {
		for _, name := range names {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// artifactURL composes the mirror URL of one artifact.
func (p *packager) artifactURL(name string) (string, error) {
	base, err := url.Parse(p.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}

	// Use path.Join to normalize duplicate slashes when composing the URL path.
	base.Path = path.Join(base.Path, name)

	return base.String(), nil
}

// printNextSteps logs human-readable guidance for next actions with the created files.
func (p *packager) printNextSteps(ctx context.Context) {
	files := p.artifactNames()
	files = append(files, p.cfg.ManifestFile)
	sort.Strings(files)

	var builder strings.Builder

	builder.WriteString("You should upload the following files to ")
	builder.WriteString(p.baseURL)
	builder.WriteString(":\n")

	for i, name := range files {
		if i > 0 {
			builder.WriteString(",\n")
		}

		builder.WriteString(name)
	}

	builder.WriteString("\n\nOn client machines, set \"mirror_url: ")
	builder.WriteString(p.baseURL)
	builder.WriteString("\" in ")
	builder.WriteString(config.DefaultConfigFilename)
	builder.WriteString(", place the manifest next to it and run ")
	builder.WriteString(config.DefaultDownloaderName)
	builder.WriteString(" to fetch verified copies.")

	logger.Info(ctx, builder.String())
}
