package doctor

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// chdir changes the working directory to dir for the duration of the test
// and restores it during cleanup. It mirrors testing.T.Chdir, which needs
// Go 1.24, for older toolchains; like the original it must not be used in
// parallel tests.
func chdir(t *testing.T, dir string) {
	t.Helper()

	oldwd, err := os.Open(".")
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	// On POSIX platforms PWD is "an absolute pathname of the current
	// working directory"; keep it in sync as testing.T.Chdir does.
	switch runtime.GOOS {
	case "windows", "plan9":
		// These platforms do not use the PWD variable.
	default:
		if !filepath.IsAbs(dir) {
			dir, err = os.Getwd()
			if err != nil {
				t.Fatal(err)
			}
		}
		t.Setenv("PWD", dir)
	}

	t.Cleanup(func() {
		err := oldwd.Chdir()
		oldwd.Close()
		if err != nil {
			// Without the original working directory the remaining
			// tests cannot run safely.
			panic("chdir: " + err.Error())
		}
	})
}
