// Package packager prepares a model manifest for teams hosting their own
// artifact mirror.
//
// It computes checksums and sizes for every artifact referenced by the
// manifest profiles and rewrites their URLs to point at the mirror. The
// resulting YAML is uploaded alongside the artifacts and consumed by the
// downloader.
package packager
