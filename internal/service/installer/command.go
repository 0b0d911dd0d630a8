package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/mystichronicle/visionnav-setup/internal/config"
	"github.com/mystichronicle/visionnav-setup/internal/logger"
	"github.com/mystichronicle/visionnav-setup/internal/service/common"
)

var (
	// ErrNoPip is returned when no usable pip invocation exists on the system.
	ErrNoPip = errors.New("no usable pip invocation found")
	// ErrRequirementsMissing is returned when the requirements manifest does not exist.
	ErrRequirementsMissing = errors.New("requirements manifest not found")
)

// Invocation is a resolved way to run pip.
type Invocation struct {
	// Name is the executable to run.
	Name string
	// Args are the arguments that select pip (e.g. "-m pip" for interpreters).
	Args []string
}

// Command returns the executable and full argument list for a pip subcommand.
func (inv *Invocation) Command(extra ...string) (string, []string) {
	args := make([]string, 0, len(inv.Args)+len(extra))
	args = append(args, inv.Args...)
	args = append(args, extra...)

	return inv.Name, args
}

// String renders the invocation for diagnostics.
func (inv *Invocation) String() string {
	return common.CommandLine(inv.Name, inv.Args)
}

// pipCandidate describes one way to invoke pip during auto-detection.
type pipCandidate struct {
	name string
	args []string
}

// detectionOrder consolidates the historical bootstrap variants: prefer
// running pip as an interpreter module, fall back to standalone pip binaries.
var detectionOrder = []pipCandidate{
	{name: "python3", args: []string{"-m", "pip"}},
	{name: "python", args: []string{"-m", "pip"}},
	{name: "pip3"},
	{name: "pip"},
}

// Resolve determines the pip invocation to use. An explicit interpreter from
// the settings always wins; otherwise the first candidate found on PATH is
// taken.
func Resolve(ctx context.Context, cfg *config.Config) (*Invocation, error) {
	if cfg.PythonExecutable != "" {
		inv := &Invocation{
			Name: cfg.PythonExecutable,
			Args: []string{"-m", "pip"},
		}

		logger.DebugKV(ctx, "Using configured interpreter for pip", "command", inv.String())

		return inv, nil
	}

	for _, candidate := range detectionOrder {
		if _, err := exec.LookPath(candidate.name); err != nil {
			continue
		}

		inv := &Invocation{
			Name: candidate.name,
			Args: candidate.args,
		}

		logger.DebugKV(ctx, "Detected pip invocation", "command", inv.String())

		return inv, nil
	}

	return nil, fmt.Errorf("%w (tried python3, python, pip3, pip)", ErrNoPip)
}

// Install runs the package manager's install operation against the
// requirements manifest. The manifest is only checked for existence; its
// contents stay opaque. Output streams of the package manager reach the
// user unmodified, and a failure halts with a diagnostic naming the command.
func Install(ctx context.Context, cfg *config.Config) error {
	ctx = logger.WithName(ctx, "installer")

	if _, err := os.Stat(cfg.RequirementsFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrRequirementsMissing, cfg.RequirementsFile)
		}

		return fmt.Errorf("stat requirements manifest: %w", err)
	}

	inv, err := Resolve(ctx, cfg)
	if err != nil {
		return err
	}

	name, args := inv.Command("install", "-r", cfg.RequirementsFile)

	logger.InfoKV(ctx, "Running package manager", "command", common.CommandLine(name, args))

	if err = common.RunPassthrough(ctx, name, args...); err != nil {
		return fmt.Errorf("install requirements: %w", err)
	}

	return nil
}
