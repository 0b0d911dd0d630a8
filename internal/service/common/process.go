//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"os"

	"github.com/mitchellh/go-ps"
)

// ProcessInfo describes a running process matched by FindProcesses.
type ProcessInfo struct {
	// PID is the operating system process identifier.
	PID int
	// Executable is the process executable name.
	Executable string
}

// FindProcesses returns running processes whose executable matches one of the
// provided names (with the platform extension appended). The current process
// is always excluded.
func FindProcesses(names ...string) ([]ProcessInfo, error) {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name+ExecutableExtension()] = struct{}{}
	}

	processList, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	thisProcessID := os.Getpid()

	var found []ProcessInfo

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		executable := process.Executable()
		if _, ok := wanted[executable]; !ok {
			continue
		}

		found = append(found, ProcessInfo{
			PID:        process.Pid(),
			Executable: executable,
		})
	}

	return found, nil
}
