//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// ErrExecutableNotFound is returned when an executable cannot be located
// next to the current binary or on PATH.
var ErrExecutableNotFound = errors.New("executable not found")

// RunPassthrough executes a command with the parent's stdout and stderr,
// so whatever the external tool prints reaches the user unmodified.
// A non-zero exit is wrapped into an error naming the full command line.
func RunPassthrough(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", CommandLine(name, args), err)
	}

	return nil
}

// CaptureOutput executes a command with the provided timeout and returns its
// trimmed standard output. Used for short probes such as version queries.
func CaptureOutput(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	// Create a context with timeout to avoid hanging.
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := exec.CommandContext(cmdCtx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", CommandLine(name, args), err)
	}

	return strings.TrimSpace(string(output)), nil
}

// ResolveExecutable locates the named program, preferring a copy installed
// next to the current binary over one found on PATH. This lets the toolchain
// binaries ship together in one directory without requiring PATH changes.
func ResolveExecutable(name string) (string, error) {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), name+ExecutableExtension())
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrExecutableNotFound, name)
	}

	return path, nil
}

// CommandLine renders a command and its arguments for diagnostics.
func CommandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}

	return name + " " + strings.Join(args, " ")
}

// ExecutableExtension returns ".exe" on Windows and "" elsewhere.
func ExecutableExtension() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return ".exe"
	}

	return ""
}
