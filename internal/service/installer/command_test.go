package installer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mystichronicle/visionnav-setup/internal/config"
)

// writeStub creates a fake executable in dir and returns its path.
func writeStub(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	return path
}

// TestInvocation_Command verifies argument composition for pip subcommands.
func TestInvocation_Command(t *testing.T) {
	t.Parallel()

	inv := &Invocation{Name: "python3", Args: []string{"-m", "pip"}}

	name, args := inv.Command("install", "-r", "requirements.txt")
	require.Equal(t, "python3", name)
	require.Equal(t, []string{"-m", "pip", "install", "-r", "requirements.txt"}, args)
	require.Equal(t, "python3 -m pip", inv.String())

	bare := &Invocation{Name: "pip3"}

	name, args = bare.Command("install", "-r", "requirements.txt")
	require.Equal(t, "pip3", name)
	require.Equal(t, []string{"install", "-r", "requirements.txt"}, args)
}

// TestResolve_ExplicitInterpreter ensures a configured interpreter always wins
// without consulting PATH.
func TestResolve_ExplicitInterpreter(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.PythonExecutable = "python3.12"

	inv, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, "python3.12", inv.Name)
	require.Equal(t, []string{"-m", "pip"}, inv.Args)
}

// TestResolve_DetectionOrder checks that interpreters are preferred over
// standalone pip binaries and that detection follows PATH contents.
// Not parallel: t.Setenv forbids it.
func TestResolve_DetectionOrder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub executables require a POSIX shell")
	}

	dir := t.TempDir()

	// Only a standalone pip3 available.
	writeStub(t, dir, "pip3")
	t.Setenv("PATH", dir)

	inv, err := Resolve(context.Background(), config.Default())
	require.NoError(t, err)
	require.Equal(t, "pip3", inv.Name)
	require.Empty(t, inv.Args)

	// Once python3 appears, it takes precedence and runs pip as a module.
	writeStub(t, dir, "python3")

	inv, err = Resolve(context.Background(), config.Default())
	require.NoError(t, err)
	require.Equal(t, "python3", inv.Name)
	require.Equal(t, []string{"-m", "pip"}, inv.Args)
}

// TestResolve_NoPip ensures an empty PATH yields ErrNoPip with a clear message.
// Not parallel: t.Setenv forbids it.
func TestResolve_NoPip(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	inv, err := Resolve(context.Background(), config.Default())
	require.ErrorIs(t, err, ErrNoPip)
	require.Nil(t, inv)
}

// TestInstall_MissingRequirements verifies the manifest existence check runs
// before any pip invocation and names the missing path.
func TestInstall_MissingRequirements(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.RequirementsFile = filepath.Join(t.TempDir(), "requirements.txt")

	err := Install(context.Background(), cfg)
	require.ErrorIs(t, err, ErrRequirementsMissing)
	require.ErrorContains(t, err, cfg.RequirementsFile)
}
