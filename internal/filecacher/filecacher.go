// Package filecacher defines the content-addressed blob store contract
// the core consumes (spec.md §6 "File cacher interface") and ships a
// disk-backed reference implementation used by the CLI and by tests. The
// real, production file cacher lives outside this module's scope: the
// core only ever calls Get/GetToWriter/Put.
package filecacher

import "io"

// FileCacher is the external collaborator the grading core depends on to
// resolve and store blobs by digest. No other calls are used by the core,
// per spec.md §6.
type FileCacher interface {
	// Get returns the full contents of the blob identified by digest.
	Get(digest string) ([]byte, error)
	// GetToWriter streams the blob identified by digest into w.
	GetToWriter(digest string, w io.Writer) error
	// Put stores the contents read from r, tagging it with a
	// human-readable description for admin-facing listings, and returns
	// its digest.
	Put(r io.Reader, description string) (digest string, err error)
}
