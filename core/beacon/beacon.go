// Package beacon provides access to a periodically published public
// randomness source, with an in-process cache and a local fallback for when
// the external source is unreachable.
package beacon

import (
	"context"
	"time"
)

// SourceLocalFallback tags rounds generated locally because the external
// beacon could not be reached. Derivations from such a round are still
// deterministic, but they are not independently verifiable; auditors filter
// on this tag.
const SourceLocalFallback = "local-fallback"

// Round is one published beacon output. A Round is immutable once fetched;
// a new round supersedes but never mutates an older one.
type Round struct {
	Number     uint64    `json:"round"`
	Randomness []byte    `json:"randomness"`
	Source     string    `json:"source"`
	FetchedAt  time.Time `json:"fetchedAt"`
}

// Verifiable reports whether the round came from an external beacon and can
// therefore be recomputed by third parties.
func (r *Round) Verifiable() bool {
	return r.Source != SourceLocalFallback
}

// Source is the external beacon collaborator. Implementations may block on
// network I/O and must honor ctx cancellation.
type Source interface {
	FetchLatest(ctx context.Context) (*Round, error)
}
