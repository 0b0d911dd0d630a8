package fetcher

import (
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mystichronicle/visionnav-setup/internal/config"
	"github.com/mystichronicle/visionnav-setup/internal/logger"
	"github.com/mystichronicle/visionnav-setup/internal/service/common"

	// Ensure SHA256 is available for checksum calculation.
	_ "crypto/sha256"
)

var errHashUnavailable = errors.New("hash function unavailable")

const (
	// MarkerFilename marks that a fetch is running right now to avoid parallel execution.
	MarkerFilename = "visionnav-fetch-marker.bin"

	// DefaultRelease is the model release tag of the compiled-in manifest.
	DefaultRelease = "yolov3"

	// DefaultFileMode is used for model artifacts and manifests written to disk.
	DefaultFileMode os.FileMode = 0o644

	// DefaultChecksumFunction is used to verify artifact integrity.
	// Hex-encoded SHA-256 is how model artifacts are conventionally published.
	DefaultChecksumFunction crypto.Hash = crypto.SHA256

	// defaultDirectoryMode is used when creating the models directory.
	defaultDirectoryMode os.FileMode = 0o755

	// markerLifetime is the period after which a stale fetch marker is ignored.
	markerLifetime = 30 * time.Second

	// retryCooldown is the base delay between download retries; it doubles per attempt.
	retryCooldown = 2 * time.Second

	// userAgent identifies the toolchain in download requests.
	userAgent = "visionnav-setup"

	// progressLogStep is the percentage interval between download progress log lines.
	progressLogStep = 20
)

// ArtifactStatus classifies a local artifact against its manifest entry.
type ArtifactStatus int

const (
	// StatusMissing means the artifact does not exist locally.
	StatusMissing ArtifactStatus = iota
	// StatusStale means the artifact exists but does not match its pinned checksum or size.
	StatusStale
	// StatusCurrent means the artifact exists and matches what the manifest pins.
	StatusCurrent
	// StatusUnverified means the artifact exists but the manifest pins nothing to check against.
	StatusUnverified
)

// String renders the status for logs and diagnostics.
func (s ArtifactStatus) String() string {
	switch s {
	case StatusMissing:
		return "missing"
	case StatusStale:
		return "stale"
	case StatusCurrent:
		return "current"
	case StatusUnverified:
		return "unverified"
	default:
		return "unknown"
	}
}

// NeedsFetch reports whether an artifact in this status must be downloaded.
func (s ArtifactStatus) NeedsFetch() bool {
	return s == StatusMissing || s == StatusStale
}

// ClassifyArtifact decides how a local file relates to its manifest entry.
// Verification prefers the pinned checksum, falls back to the pinned size,
// and treats a bare existing file as unverified (kept as-is).
func ClassifyArtifact(path string, artifact Artifact) (ArtifactStatus, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return StatusMissing, nil
		}

		return StatusMissing, fmt.Errorf("stat %s: %w", path, err)
	}

	if artifact.SHA256 != "" {
		checksum, err := FileChecksum(path)
		if err != nil {
			return StatusMissing, err
		}

		if strings.EqualFold(checksum, artifact.SHA256) {
			return StatusCurrent, nil
		}

		return StatusStale, nil
	}

	if artifact.Size > 0 {
		if info.Size() == artifact.Size {
			return StatusCurrent, nil
		}

		return StatusStale, nil
	}

	return StatusUnverified, nil
}

// FileChecksum returns the hex-encoded checksum of a file using
// DefaultChecksumFunction. The file is streamed rather than read whole;
// model weights run to hundreds of megabytes.
func FileChecksum(path string) (string, error) {
	if !DefaultChecksumFunction.Available() {
		return "", fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := DefaultChecksumFunction.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// IsFetchRunningNow checks presence of a fetch marker and attempts recovery
// if it looks stale. A stale marker is removed only once no live downloader
// process remains; a crashed fetch therefore heals itself after the marker
// lifetime passes.
func IsFetchRunningNow(ctx context.Context) bool {
	logger.Info(ctx, "Checking for the presence of a fetch marker")

	fileInfo, err := os.Stat(MarkerFilename)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The fetch marker is too old, attempting cleanup")

		running, psErr := common.FindProcesses(config.DefaultDownloaderName)
		if psErr != nil || len(running) > 0 {
			return true
		}

		if err = os.Remove(MarkerFilename); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "Fetch marker not found, continuing")
		return false
	}

	logger.Infof(ctx, "Unable to read fetch marker: %v", err)

	return false
}
