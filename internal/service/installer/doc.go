// Package installer runs the Python package manager against the requirements
// manifest.
//
// It resolves a usable pip invocation (interpreter module or standalone
// binary), verifies the manifest exists, and shells out with output passed
// through. The manifest contents are never parsed here; dependency
// resolution belongs entirely to pip.
package installer
