// Package config defines toolchain settings shared by the setup binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Every field has a default, so a zero-argument invocation works without any
// settings file on disk.
package config
