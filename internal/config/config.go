package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the setup binaries.
type Config struct {
	// PythonExecutable pins the Python interpreter used to run pip.
	// When empty, the pip invocation is auto-detected from PATH.
	PythonExecutable string `yaml:"python_executable"`
	// RequirementsFile is the path to the Python requirements manifest.
	// Its contents are opaque to the toolchain; only pip reads it.
	RequirementsFile string `yaml:"requirements_file"`
	// ManifestFile is the path to the model manifest YAML.
	ManifestFile string `yaml:"manifest_file"`
	// ModelsDir is the directory where model artifacts are stored.
	ModelsDir string `yaml:"models_dir"`
	// Downloader is the name of the external downloader executable.
	Downloader string `yaml:"downloader"`
	// Profile selects which artifact set from the manifest to fetch.
	Profile string `yaml:"profile"`
	// MirrorURL optionally overrides per-artifact URLs with a mirror base.
	MirrorURL string `yaml:"mirror_url"`
	// Timeout is the duration for individual network requests and version probes.
	Timeout time.Duration `yaml:"timeout"`
	// MaxConcurrentDownloads bounds how many artifacts download in parallel.
	MaxConcurrentDownloads int `yaml:"max_concurrent_downloads"`
	// MaxRetries is how many times a failed download is retried.
	MaxRetries int `yaml:"max_retries"`
	// StateFile is the path to the JSON file recording setup runs.
	StateFile string `yaml:"state_file"`
}

const (
	// DefaultConfigFilename is the default filename for toolchain settings.
	DefaultConfigFilename = "visionnav-settings.yaml"

	// DefaultRequirementsFilename is the default Python requirements manifest.
	DefaultRequirementsFilename = "requirements.txt"

	// DefaultManifestFilename is the default filename for the model manifest.
	DefaultManifestFilename = "visionnav-models.yaml"

	// DefaultModelsDir is the default directory for model artifacts.
	DefaultModelsDir = "data/yolo"

	// DefaultDownloaderName is the default downloader executable name.
	DefaultDownloaderName = "visionnav-models"

	// DefaultProfile is the default artifact profile.
	DefaultProfile = "full"

	// DefaultStateFilename is the default filename for setup run state JSON.
	DefaultStateFilename = "visionnav-setup-state.json"

	// DefaultTimeout is the default duration for network requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxConcurrentDownloads is the default download parallelism.
	DefaultMaxConcurrentDownloads = 2

	// DefaultMaxRetries is the default number of download retries.
	DefaultMaxRetries = 3

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

// Default returns settings with every field set to its default value.
func Default() *Config {
	return &Config{
		RequirementsFile:       DefaultRequirementsFilename,
		ManifestFile:           DefaultManifestFilename,
		ModelsDir:              DefaultModelsDir,
		Downloader:             DefaultDownloaderName,
		Profile:                DefaultProfile,
		Timeout:                DefaultTimeout,
		MaxConcurrentDownloads: DefaultMaxConcurrentDownloads,
		MaxRetries:             DefaultMaxRetries,
		StateFile:              DefaultStateFilename,
	}
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads settings from the provided path.
// When no explicit path is given and the default settings file does not
// exist, built-in defaults are returned instead of an error, so the
// zero-configuration invocation keeps working. An explicit path that cannot
// be read is still an error.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	cfg, err := Load(DefaultConfigFilename)
	if err == nil {
		return cfg, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return nil, err
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills in defaults for unset fields and checks field formats.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.RequirementsFile == "" {
		settings.RequirementsFile = DefaultRequirementsFilename
	}

	if settings.ManifestFile == "" {
		settings.ManifestFile = DefaultManifestFilename
	}

	if settings.ModelsDir == "" {
		settings.ModelsDir = DefaultModelsDir
	}

	if settings.Downloader == "" {
		settings.Downloader = DefaultDownloaderName
	}

	if settings.Profile == "" {
		settings.Profile = DefaultProfile
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.MaxConcurrentDownloads <= 0 {
		settings.MaxConcurrentDownloads = DefaultMaxConcurrentDownloads
	}

	if settings.MaxRetries <= 0 {
		settings.MaxRetries = DefaultMaxRetries
	}

	if settings.StateFile == "" {
		settings.StateFile = DefaultStateFilename
	}

	if settings.MirrorURL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(settings.MirrorURL); err != nil {
		return fmt.Errorf("invalid mirror URL: %w", err)
	}

	return nil
}
