// Package bootstrap contains core domain types for setup runs.
//
// It defines Actor (who ran the setup), StepResult (the outcome of a single
// step) and State (the record of one run) with Clone helpers to avoid leaking
// internal references.
package bootstrap
