// Package state implements persistence for setup run State.
//
// The FileRepository stores and loads the last run as pretty-printed JSON on
// disk and exposes a Repository interface that the setup service depends on.
package state
