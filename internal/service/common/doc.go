// Package common holds helpers shared by several services.
//
// It provides utilities to run external commands (with output passed through
// or captured), to resolve executables installed next to the toolchain
// binaries, to list running toolchain processes, and to detect the current
// system actor (hostname/username) for audit purposes.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
