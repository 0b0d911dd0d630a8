// Package fetcher downloads the model artifacts described by the model
// manifest.
//
// It classifies local artifacts against pinned checksums or sizes, downloads
// missing or stale files concurrently with retries and progress reporting,
// then verifies and atomically applies them into the models directory.
// A marker file prevents concurrent fetch runs.
package fetcher
