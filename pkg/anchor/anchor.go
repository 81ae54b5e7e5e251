// Package anchor is the external storage collaborator used by verified-mode
// commitments. A commitment in verified mode hashes a locator reference, not
// the blob itself, so reveal-time reconciliation between locator and content
// is what keeps the pairing honest end-to-end.
package anchor

import (
	"context"
	"errors"
)

var (
	ErrBlobNotFound    = errors.New("anchor: blob not found")
	ErrContentMismatch = errors.New("anchor: retrieved content does not match locator")
	ErrEmptyBlob       = errors.New("anchor: empty blob")
)

// Storage stores opaque blobs and returns a content-derived locator.
// Implementations may block on network I/O.
type Storage interface {
	Store(ctx context.Context, blob []byte) (locator string, err error)
	Retrieve(ctx context.Context, locator string) ([]byte, error)
}
