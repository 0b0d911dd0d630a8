package fetcher

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mystichronicle/visionnav-setup/internal/config"
	"github.com/mystichronicle/visionnav-setup/internal/logger"
)

var (
	// ErrUnknownProfile is returned when the manifest does not define the requested profile.
	ErrUnknownProfile = errors.New("unknown artifact profile")

	errManifestIsNotSet    = errors.New("manifest is not set")
	errNoModels            = errors.New("manifest lists no models")
	errArtifactURLRequired = errors.New("artifact URL must be provided")
	errBadChecksum         = errors.New("invalid sha256 checksum")
	errUnknownArtifact     = errors.New("profile references unknown artifact")
)

// Artifact describes a single downloadable model file.
type Artifact struct {
	// URL is the source location of the artifact.
	URL string `yaml:"url"`
	// SHA256 is the hex-encoded checksum, empty when upstream publishes none.
	SHA256 string `yaml:"sha256,omitempty"`
	// Size is the expected byte size, zero when unknown.
	Size int64 `yaml:"size,omitempty"`
}

// Manifest describes the model artifacts distributed to clients.
type Manifest struct {
	// Release is the model release tag this manifest describes.
	Release string `yaml:"release"`
	// Models maps artifact filenames to their source and integrity data.
	Models map[string]Artifact `yaml:"models"`
	// Profiles maps profile names to the artifact sets they require.
	Profiles map[string][]string `yaml:"profiles"`
}

// DefaultManifest mirrors the upstream YOLO v3 publication: configuration and
// class names from the darknet repository, weights from their published
// mirrors. Upstream pins no checksums, so verification stays off until a
// packager-generated manifest provides them.
func DefaultManifest() *Manifest {
	return &Manifest{
		Release: DefaultRelease,
		Models: map[string]Artifact{
			"yolov3.cfg": {
				URL: "https://raw.githubusercontent.com/pjreddie/darknet/master/cfg/yolov3.cfg",
			},
			"yolov3.weights": {
				URL: "https://github.com/patrick013/Object-Detection---Yolov3/raw/master/model/yolov3.weights",
			},
			"yolov3-tiny.cfg": {
				URL: "https://raw.githubusercontent.com/pjreddie/darknet/master/cfg/yolov3-tiny.cfg",
			},
			"yolov3-tiny.weights": {
				URL: "https://pjreddie.com/media/files/yolov3-tiny.weights",
			},
			"coco.names": {
				URL: "https://raw.githubusercontent.com/pjreddie/darknet/master/data/coco.names",
			},
		},
		Profiles: map[string][]string{
			"full": {"yolov3.cfg", "yolov3.weights", "coco.names"},
			"tiny": {"yolov3-tiny.cfg", "yolov3-tiny.weights", "coco.names"},
		},
	}
}

// LoadManifest reads and validates a manifest from the provided path.
func LoadManifest(path string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err = yaml.Unmarshal(contents, &manifest); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	if err = manifest.Validate(); err != nil {
		return nil, err
	}

	return &manifest, nil
}

// LoadManifestOrDefault reads the manifest at path, falling back to the
// compiled-in default when the file does not exist.
func LoadManifestOrDefault(ctx context.Context, path string) (*Manifest, error) {
	manifest, err := LoadManifest(path)
	if err == nil {
		return manifest, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		logger.InfoKV(ctx, "Model manifest not found, using the built-in one", "path", path)
		return DefaultManifest(), nil
	}

	return nil, err
}

// SaveManifest writes the manifest to the provided path.
func SaveManifest(path string, manifest *Manifest) error {
	if err := manifest.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Validate checks manifest consistency and fills defaults. A manifest
// without profiles gets a synthesized "full" profile covering every model.
func (m *Manifest) Validate() error {
	if m == nil {
		return errManifestIsNotSet
	}

	if m.Release == "" {
		m.Release = DefaultRelease
	}

	if len(m.Models) == 0 {
		return errNoModels
	}

	for name, artifact := range m.Models {
		if err := artifact.validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if len(m.Profiles) == 0 {
		m.Profiles = map[string][]string{
			config.DefaultProfile: m.modelNames(),
		}
	}

	for profile, names := range m.Profiles {
		for _, name := range names {
			if _, ok := m.Models[name]; !ok {
				return fmt.Errorf("profile %s: %s: %w", profile, name, errUnknownArtifact)
			}
		}
	}

	return nil
}

// ProfileArtifacts returns the artifact names a profile requires, sorted for
// a deterministic processing order.
func (m *Manifest) ProfileArtifacts(profile string) ([]string, error) {
	names, ok := m.Profiles[profile]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", profile, ErrUnknownProfile)
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	return sorted, nil
}

// modelNames returns every model filename in sorted order.
func (m *Manifest) modelNames() []string {
	names := make([]string, 0, len(m.Models))
	for name := range m.Models {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// validate checks a single artifact entry.
func (a Artifact) validate() error {
	if a.URL == "" {
		return errArtifactURLRequired
	}

	if _, err := url.ParseRequestURI(a.URL); err != nil {
		return fmt.Errorf("invalid artifact URL: %w", err)
	}

	if a.SHA256 != "" {
		checksum, err := hex.DecodeString(a.SHA256)
		if err != nil || len(checksum) != DefaultChecksumFunction.Size() {
			return errBadChecksum
		}
	}

	return nil
}
