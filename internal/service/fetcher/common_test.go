package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestArtifactStatus checks rendering and fetch decisions per status.
func TestArtifactStatus(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		status     ArtifactStatus
		text       string
		needsFetch bool
	}{
		{StatusMissing, "missing", true},
		{StatusStale, "stale", true},
		{StatusCurrent, "current", false},
		{StatusUnverified, "unverified", false},
		{ArtifactStatus(42), "unknown", false},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.text, tc.status.String())
		require.Equal(t, tc.needsFetch, tc.status.NeedsFetch())
	}
}

// TestFileChecksum compares the streamed checksum with a direct calculation.
func TestFileChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "yolov3.cfg")
	payload := []byte("[net]\nbatch=64\n")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	sum := sha256.Sum256(payload)
	want := hex.EncodeToString(sum[:])

	got, err := FileChecksum(path)
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = FileChecksum(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

// TestClassifyArtifact covers all verification branches.
func TestClassifyArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "coco.names")
	payload := []byte("person\nbicycle\ncar\n")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	sum := sha256.Sum256(payload)
	checksum := hex.EncodeToString(sum[:])

	testCases := []struct {
		name     string
		path     string
		artifact Artifact
		want     ArtifactStatus
	}{
		{
			name:     "missing",
			path:     filepath.Join(dir, "absent"),
			artifact: Artifact{SHA256: checksum},
			want:     StatusMissing,
		},
		{
			name:     "checksum_match",
			path:     path,
			artifact: Artifact{SHA256: checksum},
			want:     StatusCurrent,
		},
		{
			name:     "checksum_mismatch",
			path:     path,
			artifact: Artifact{SHA256: "deadbeef"},
			want:     StatusStale,
		},
		{
			name:     "checksum_wins_over_size",
			path:     path,
			artifact: Artifact{SHA256: checksum, Size: 1},
			want:     StatusCurrent,
		},
		{
			name:     "size_match",
			path:     path,
			artifact: Artifact{Size: int64(len(payload))},
			want:     StatusCurrent,
		},
		{
			name:     "size_mismatch",
			path:     path,
			artifact: Artifact{Size: int64(len(payload)) + 1},
			want:     StatusStale,
		},
		{
			name:     "nothing_pinned",
			path:     path,
			artifact: Artifact{},
			want:     StatusUnverified,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ClassifyArtifact(tc.path, tc.artifact)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// TestIsFetchRunningNow exercises marker detection and stale recovery.
// Not parallel: the marker lives in the working directory.
func TestIsFetchRunningNow(t *testing.T) {
	ctx := context.Background()

	t.Run("no_marker", func(t *testing.T) {
		chdir(t, t.TempDir())

		require.False(t, IsFetchRunningNow(ctx))
	})

	t.Run("fresh_marker", func(t *testing.T) {
		chdir(t, t.TempDir())

		require.NoError(t, os.WriteFile(MarkerFilename, nil, 0o644))
		require.True(t, IsFetchRunningNow(ctx))
	})

	t.Run("stale_marker_is_removed", func(t *testing.T) {
		chdir(t, t.TempDir())

		require.NoError(t, os.WriteFile(MarkerFilename, nil, 0o644))

		expired := time.Now().Add(-2 * markerLifetime)
		require.NoError(t, os.Chtimes(MarkerFilename, expired, expired))

		require.False(t, IsFetchRunningNow(ctx))

		_, err := os.Stat(MarkerFilename)
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}
