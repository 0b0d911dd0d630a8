package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestFromContext_FallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
	require.Same(t, Logger(), FromContext(nil)) //nolint:staticcheck // Nil context fallback is part of the contract.
}

// TestWithName_StoresScopedLogger ensures WithName stores a logger distinct from the global one.
func TestWithName_StoresScopedLogger(t *testing.T) {
	t.Parallel()

	ctx := WithName(context.Background(), "visionnav-setup")
	require.NotSame(t, Logger(), FromContext(ctx))

	// Nested scopes keep returning the stored logger, not the global.
	nested := WithKV(ctx, "run_id", "test")
	require.NotSame(t, Logger(), FromContext(nested))
}
