// Package setup implements the bootstrap runner: it installs the Python
// dependencies of the vision stack and then launches the external model
// downloader, halting on the first failure. Each run is recorded to a JSON
// state file for later inspection.
package setup
