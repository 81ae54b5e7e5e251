// Package ledger implements the commit/reveal state machine. A commitment
// binds an owner to a payload via SHA256(canonical(payload) || nonce) before
// the outcome is known; the reveal recomputes the digest, marks the record
// revealed exactly once, and scores the outcome.
//
// The ledger holds no commitment state of its own: the commitstore.Store
// collaborator is the single source of truth, and its CompareAndMarkRevealed
// carries the reveal-exactly-once guarantee.
package ledger

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/psiforge/commit-lib/core/beacon"
	"github.com/psiforge/commit-lib/core/digest"
	"github.com/psiforge/commit-lib/lib/params"
	"github.com/psiforge/commit-lib/pkg/anchor"
	"github.com/psiforge/commit-lib/pkg/common/commitstore"
	"github.com/psiforge/commit-lib/pkg/registry"
	"github.com/psiforge/commit-lib/pkg/scorer"
)

type Ledger struct {
	store   commitstore.Store
	anchors anchor.Storage
	scores  *scorer.Chain
	beacon  *beacon.Adapter
	log     zerolog.Logger
	now     func() time.Time
}

type Option func(*Ledger)

// WithAnchorStorage enables verified-mode reveals.
func WithAnchorStorage(storage anchor.Storage) Option {
	return func(l *Ledger) { l.anchors = storage }
}

// WithScorer sets the similarity scorer used by free-text kinds.
func WithScorer(chain *scorer.Chain) Option {
	return func(l *Ledger) { l.scores = chain }
}

func WithLogger(log zerolog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

func New(store commitstore.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		log:   zerolog.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.scores == nil {
		l.scores = scorer.NewChain(nil, 0, l.log)
	}
	return l
}

// CommitRequest describes a new commitment. Guest mode supplies Payload
// inline; verified mode supplies a Locator referencing externally anchored
// data and leaves Payload nil.
type CommitRequest struct {
	OwnerID        string
	ExperimentKind string
	SessionID      string
	Payload        interface{}
	Locator        string
	Verified       bool
	RevealDeadline time.Time
}

// Commitment is the caller-facing view of a committed record. It never
// carries the payload or the nonce.
type Commitment struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"ownerId"`
	ExperimentKind string    `json:"experimentKind"`
	SessionID      string    `json:"sessionId,omitempty"`
	CommitmentHash string    `json:"commitmentHash"`
	Verified       bool      `json:"verified"`
	Revealed       bool      `json:"revealed"`
	CreatedAt      time.Time `json:"createdAt"`
	RevealDeadline time.Time `json:"revealDeadline,omitempty"`
}

func commitmentView(record *commitstore.Record) *Commitment {
	return &Commitment{
		ID:             record.ID,
		OwnerID:        record.OwnerID,
		ExperimentKind: record.ExperimentKind,
		SessionID:      record.SessionID,
		CommitmentHash: record.CommitmentHash,
		Verified:       record.Verified,
		Revealed:       record.Revealed,
		CreatedAt:      record.CreatedAt,
		RevealDeadline: record.RevealDeadline,
	}
}

// Commit validates the request, computes the commitment digest under a fresh
// nonce, persists the record, and returns the commitment together with the
// nonce. The nonce is returned to the caller only; it is never persisted, so
// only a party holding it can later verify the reveal.
func (l *Ledger) Commit(ctx context.Context, req CommitRequest) (*Commitment, []byte, error) {
	kind, err := registry.Lookup(req.ExperimentKind)
	if err != nil {
		return nil, nil, errors.WithMessagef(ErrInvalidInput, "unknown experiment kind %q", req.ExperimentKind)
	}
	if !kind.RequiresCommit {
		return nil, nil, errors.WithMessagef(ErrInvalidInput, "kind %q does not use commitments", req.ExperimentKind)
	}
	if req.OwnerID == "" {
		return nil, nil, errors.WithMessage(ErrInvalidInput, "missing owner id")
	}
	if req.Verified && req.Locator == "" {
		return nil, nil, errors.WithMessage(ErrInvalidInput, "verified mode requires a payload locator")
	}
	if !req.Verified && req.Payload == nil {
		return nil, nil, errors.WithMessage(ErrInvalidInput, "guest mode requires an inline payload")
	}

	nonce := make([]byte, params.NonceBytes)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, errors.WithMessage(err, "ledger: generate nonce")
	}

	canonical, err := l.canonicalPayload(req)
	if err != nil {
		return nil, nil, errors.WithMessage(ErrInvalidInput, err.Error())
	}

	record := &commitstore.Record{
		ID:             uuid.New().String(),
		OwnerID:        req.OwnerID,
		ExperimentKind: req.ExperimentKind,
		SessionID:      req.SessionID,
		CommitmentHash: digest.SumCanonical(canonical, nonce),
		Verified:       req.Verified,
		CreatedAt:      l.now().UTC(),
		RevealDeadline: req.RevealDeadline,
	}
	if req.Verified {
		record.Locator = req.Locator
	} else {
		record.Payload = canonical
	}

	if err := l.store.Put(ctx, record); err != nil {
		return nil, nil, errors.WithMessage(err, "ledger: persist commitment")
	}

	l.log.Debug().
		Str("commitment", record.ID).
		Str("kind", record.ExperimentKind).
		Bool("verified", record.Verified).
		Msg("commitment created")

	return commitmentView(record), nonce, nil
}

// canonicalPayload returns the bytes the commitment digest covers: the
// canonical payload in guest mode, the canonical locator reference in
// verified mode. The verified digest deliberately covers the reference and
// not the blob, since the blob's own content address is reconciled against
// the locator at reveal time.
func (l *Ledger) canonicalPayload(req CommitRequest) ([]byte, error) {
	if req.Verified {
		return digest.Canonical(locatorRef(req.Locator))
	}
	return digest.Canonical(req.Payload)
}

func locatorRef(locator string) map[string]interface{} {
	return map[string]interface{}{"locator": locator}
}

// Status is the read-only pre-reveal view. No payload is ever included.
type Status struct {
	ID             string    `json:"id"`
	ExperimentKind string    `json:"experimentKind"`
	Revealed       bool      `json:"revealed"`
	Verified       bool      `json:"verified"`
	Scored         bool      `json:"scored"`
	CreatedAt      time.Time `json:"createdAt"`
	RevealDeadline time.Time `json:"revealDeadline,omitempty"`
}

func (l *Ledger) GetStatus(ctx context.Context, commitmentID string) (*Status, error) {
	record, err := l.store.Get(ctx, commitmentID)
	if err != nil {
		return nil, err
	}
	return &Status{
		ID:             record.ID,
		ExperimentKind: record.ExperimentKind,
		Revealed:       record.Revealed,
		Verified:       record.Verified,
		Scored:         record.Score != nil,
		CreatedAt:      record.CreatedAt,
		RevealDeadline: record.RevealDeadline,
	}, nil
}

// Classify reports the reveal topology for an experiment kind.
func (l *Ledger) Classify(kind string) (registry.Classification, error) {
	return registry.Classify(kind)
}
