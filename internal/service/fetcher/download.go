package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/mystichronicle/visionnav-setup/internal/logger"
)

var errBadHTTPStatus = errors.New("unexpected http status")

// progressWriter wraps a writer to track download progress.
type progressWriter struct {
	writer   io.Writer
	total    int64
	written  int64
	onUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and invoking the callback.
func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)

	if pw.onUpdate != nil {
		pw.onUpdate(pw.written, pw.total)
	}

	return n, err
}

// downloadArtifact fetches one artifact into the destination file, retrying
// with exponential backoff up to the configured retry budget.
func (r *runner) downloadArtifact(ctx context.Context, name string, artifact Artifact, destination string) error {
	var err error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.WarnKV(ctx, "Retrying download",
				"artifact", name, "attempt", attempt, "max_retries", r.cfg.MaxRetries)

			if waitErr := waitForRetry(ctx, attempt); waitErr != nil {
				return waitErr
			}
		}

		if err = r.downloadOnce(ctx, name, artifact, destination); err == nil {
			return nil
		}

		logger.WarnKV(ctx, "Download failed", "artifact", name, "error", err)

		// A canceled run must not burn through the retry budget.
		if ctx.Err() != nil {
			break
		}
	}

	return fmt.Errorf("download %s: %w", name, err)
}

// downloadOnce performs a single transfer attempt into the destination file.
func (r *runner) downloadOnce(ctx context.Context, name string, artifact Artifact, destination string) error {
	sourceURL, err := r.resolveArtifactURL(name, artifact)
	if err != nil {
		return err
	}

	// Per-request timeout from settings.
	requestCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, sourceURL, http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", userAgent)

	response, err := r.client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", sourceURL, response.Status, errBadHTTPStatus)
	}

	outputFile, err := os.Create(filepath.Clean(destination))
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Downloading artifact", "artifact", name, "url", sourceURL)

	// Prefer the server-reported length; fall back to the pinned size.
	total := response.ContentLength
	if total <= 0 {
		total = artifact.Size
	}

	writer := &progressWriter{
		writer:   outputFile,
		total:    total,
		onUpdate: progressLogger(ctx, name),
	}

	if _, err = io.Copy(writer, response.Body); err != nil {
		_ = outputFile.Close()

		return err
	}

	return outputFile.Close()
}

// resolveArtifactURL returns the artifact source, honoring a mirror override.
func (r *runner) resolveArtifactURL(name string, artifact Artifact) (string, error) {
	if r.cfg.MirrorURL == "" {
		return artifact.URL, nil
	}

	mirrorURL, err := url.Parse(r.cfg.MirrorURL)
	if err != nil {
		return "", fmt.Errorf("parse mirror URL: %w", err)
	}

	// Use path.Join to normalize duplicate slashes when composing the URL path.
	mirrorURL.Path = path.Join(mirrorURL.Path, name)

	return mirrorURL.String(), nil
}

// progressLogger returns a progress callback that logs a line whenever the
// transfer crosses the next progressLogStep percentage boundary.
func progressLogger(ctx context.Context, name string) func(written, total int64) {
	nextPercent := int64(progressLogStep)

	return func(written, total int64) {
		if total <= 0 {
			return
		}

		percent := written * 100 / total
		if percent < nextPercent {
			return
		}

		for nextPercent <= percent {
			nextPercent += progressLogStep
		}

		logger.Infof(ctx, "Downloading %s: %d%% (%d/%d bytes)", name, percent, written, total)
	}
}

// waitForRetry sleeps with exponential backoff, honoring cancellation.
func waitForRetry(ctx context.Context, attempt int) error {
	cooldown := retryCooldown * time.Duration(1<<(attempt-1))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(cooldown):
		return nil
	}
}
