// Package commitstore defines the persistence contract for commitment
// records. The store is the single source of truth for commitment state; in
// particular CompareAndMarkRevealed is the only atomicity point for the
// reveal-exactly-once guarantee, so every implementation must make it an
// atomic check-and-set.
package commitstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("commitstore: commitment not found")
	ErrAlreadyRevealed = errors.New("commitstore: commitment already revealed")
	ErrDuplicateID     = errors.New("commitstore: commitment id already exists")
)

// ScoreSummary is persisted after a successful reveal.
type ScoreSummary struct {
	Hits       int       `cbor:"hits" json:"hits"`
	Misses     int       `cbor:"misses" json:"misses"`
	Score      float64   `cbor:"score" json:"score"`
	Method     string    `cbor:"method" json:"method"`
	ZScore     float64   `cbor:"zScore" json:"zScore"`
	PValue     float64   `cbor:"pValue" json:"pValue"`
	EffectSize float64   `cbor:"effectSize" json:"effectSize"`
	ScoredAt   time.Time `cbor:"scoredAt" json:"scoredAt"`
}

// Record is the persisted form of a commitment. The nonce is deliberately
// absent: it lives with the committer until reveal time.
type Record struct {
	ID             string        `cbor:"id"`
	OwnerID        string        `cbor:"ownerId"`
	ExperimentKind string        `cbor:"experimentKind"`
	SessionID      string        `cbor:"sessionId,omitempty"`
	CommitmentHash string        `cbor:"commitmentHash"`
	Payload        []byte        `cbor:"payload,omitempty"` // canonical bytes, nil in verified mode
	Locator        string        `cbor:"locator,omitempty"` // anchor locator, verified mode only
	Verified       bool          `cbor:"verified"`
	Revealed       bool          `cbor:"revealed"`
	CreatedAt      time.Time     `cbor:"createdAt"`
	RevealDeadline time.Time     `cbor:"revealDeadline,omitempty"`
	Score          *ScoreSummary `cbor:"score,omitempty"`
}

// Clone returns a deep copy so that callers can never mutate stored state
// through a returned pointer.
func (r *Record) Clone() *Record {
	out := *r
	if r.Payload != nil {
		out.Payload = append([]byte(nil), r.Payload...)
	}
	if r.Score != nil {
		score := *r.Score
		out.Score = &score
	}
	return &out
}

// Store persists commitment records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Put durably writes a new record. ErrDuplicateID if the id exists.
	Put(ctx context.Context, record *Record) error

	// Get returns the record or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// CompareAndMarkRevealed atomically flips revealed from false to true.
	// ErrAlreadyRevealed if it was already true; ErrNotFound if absent.
	// Exactly one of any number of concurrent calls succeeds.
	CompareAndMarkRevealed(ctx context.Context, id string) error

	// SetScore attaches the post-reveal score summary.
	SetScore(ctx context.Context, id string, score *ScoreSummary) error

	// FindBySession returns all records committed under sessionID.
	FindBySession(ctx context.Context, sessionID string) ([]*Record, error)
}
