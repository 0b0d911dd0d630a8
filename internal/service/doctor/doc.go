// Package doctor diagnoses the environment the toolchain runs in: pip
// availability, the requirements manifest, the model manifest, local artifact
// state and the last recorded setup run. It never changes anything; it only
// reports what a setup run would encounter.
package doctor
