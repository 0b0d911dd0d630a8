package fetcher

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mystichronicle/visionnav-setup/internal/config"
)

// testRunner builds a runner wired for direct downloads in tests.
func testRunner(cfg *config.Config) *runner {
	if cfg == nil {
		cfg = config.Default()
	}

	return &runner{
		cfg:      cfg,
		manifest: DefaultManifest(),
		client:   http.DefaultClient,
	}
}

// TestResolveArtifactURL checks mirror overrides and passthrough.
func TestResolveArtifactURL(t *testing.T) {
	t.Parallel()

	artifact := Artifact{URL: "https://upstream.example.com/files/yolov3.weights"}

	r := testRunner(nil)

	got, err := r.resolveArtifactURL("yolov3.weights", artifact)
	require.NoError(t, err)
	require.Equal(t, artifact.URL, got)

	r.cfg.MirrorURL = "https://mirror.local/yolo/"

	got, err = r.resolveArtifactURL("yolov3.weights", artifact)
	require.NoError(t, err)
	require.Equal(t, "https://mirror.local/yolo/yolov3.weights", got)
}

// TestProgressWriter verifies byte accounting and callback invocation.
func TestProgressWriter(t *testing.T) {
	t.Parallel()

	var (
		buffer      bytes.Buffer
		lastWritten int64
		lastTotal   int64
	)

	writer := &progressWriter{
		writer: &buffer,
		total:  10,
		onUpdate: func(written, total int64) {
			lastWritten = written
			lastTotal = total
		},
	}

	n, err := writer.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	_, err = writer.Write([]byte("world"))
	require.NoError(t, err)

	require.Equal(t, int64(10), lastWritten)
	require.Equal(t, int64(10), lastTotal)
	require.Equal(t, "helloworld", buffer.String())
}

// TestDownloadArtifact_Success transfers a payload from a local server.
func TestDownloadArtifact_Success(t *testing.T) {
	t.Parallel()

	payload := []byte("person\nbicycle\ncar\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, userAgent, r.Header.Get("User-Agent"))

		_, _ = w.Write(payload)
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "coco.names")

	r := testRunner(nil)

	err := r.downloadArtifact(context.Background(), "coco.names",
		Artifact{URL: server.URL + "/coco.names"}, destination)
	require.NoError(t, err)

	got, err := os.ReadFile(destination)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

// TestDownloadArtifact_BadStatus surfaces non-200 responses as errors.
func TestDownloadArtifact_BadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.MaxRetries = 0

	r := testRunner(cfg)

	err := r.downloadArtifact(context.Background(), "yolov3.cfg",
		Artifact{URL: server.URL + "/yolov3.cfg"}, filepath.Join(t.TempDir(), "yolov3.cfg"))
	require.ErrorIs(t, err, errBadHTTPStatus)
}

// TestDownloadArtifact_Retries verifies transient failures are retried.
func TestDownloadArtifact_Retries(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		_, _ = w.Write([]byte("weights"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.MaxRetries = 1

	r := testRunner(cfg)

	err := r.downloadArtifact(context.Background(), "yolov3.weights",
		Artifact{URL: server.URL + "/yolov3.weights"}, filepath.Join(t.TempDir(), "yolov3.weights"))
	require.NoError(t, err)
	require.Equal(t, int64(2), requests.Load())
}

// TestDownloadArtifact_CanceledContext stops retrying once the run is canceled.
func TestDownloadArtifact_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.Default()
	cfg.MaxRetries = 5

	r := testRunner(cfg)

	start := time.Now()
	err := r.downloadArtifact(ctx, "yolov3.cfg",
		Artifact{URL: "http://127.0.0.1:1/yolov3.cfg"}, filepath.Join(t.TempDir(), "yolov3.cfg"))
	require.Error(t, err)

	// The retry budget would cost over a minute of cooldowns if cancellation
	// were ignored.
	require.Less(t, time.Since(start), retryCooldown)
}
