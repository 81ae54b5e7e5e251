package ledger

import (
	"context"

	"github.com/pkg/errors"

	"github.com/psiforge/commit-lib/core/beacon"
	"github.com/psiforge/commit-lib/pkg/registry"
)

// Target is a beacon-derived experiment target. The round fields pin which
// randomness the target was derived from, so that anyone holding the round
// can recompute the same target.
type Target struct {
	ExperimentKind string                 `json:"experimentKind"`
	Label          string                 `json:"label"`
	RoundNumber    uint64                 `json:"roundNumber"`
	RoundSource    string                 `json:"roundSource"`
	Data           map[string]interface{} `json:"data"`
}

// WithBeacon sets the randomness source for target generation.
func WithBeacon(adapter *beacon.Adapter) Option {
	return func(l *Ledger) { l.beacon = adapter }
}

// GenerateTarget derives a fresh target for kind from the latest beacon
// round. The label scopes the derivation; distinct labels over the same round
// produce independent targets.
func (l *Ledger) GenerateTarget(ctx context.Context, kindName, label string) (*Target, error) {
	kind, err := registry.Lookup(kindName)
	if err != nil {
		return nil, errors.WithMessagef(ErrInvalidInput, "unknown experiment kind %q", kindName)
	}
	if kind.Target == nil {
		return nil, errors.WithMessagef(ErrInvalidInput, "kind %q has no target generator", kindName)
	}
	if l.beacon == nil {
		return nil, errors.WithMessage(ErrInvalidInput, "no beacon configured")
	}

	round, err := l.beacon.Latest(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "ledger: fetch beacon round")
	}
	return l.deriveTarget(kind, label, round)
}

// RecomputeTarget re-derives the target for an already-seen beacon round, for
// audit replay. Rounds served from local fallback are never cached and cannot
// be recomputed.
func (l *Ledger) RecomputeTarget(kindName, label string, roundNumber uint64) (*Target, error) {
	kind, err := registry.Lookup(kindName)
	if err != nil {
		return nil, errors.WithMessagef(ErrInvalidInput, "unknown experiment kind %q", kindName)
	}
	if kind.Target == nil {
		return nil, errors.WithMessagef(ErrInvalidInput, "kind %q has no target generator", kindName)
	}
	if l.beacon == nil {
		return nil, errors.WithMessage(ErrInvalidInput, "no beacon configured")
	}

	round, ok := l.beacon.ByRound(roundNumber)
	if !ok {
		return nil, errors.WithMessagef(ErrNotFound, "beacon round %d", roundNumber)
	}
	return l.deriveTarget(kind, label, round)
}

func (l *Ledger) deriveTarget(kind registry.Kind, label string, round *beacon.Round) (*Target, error) {
	data, err := kind.Target(round.Randomness, label)
	if err != nil {
		return nil, errors.WithMessagef(err, "ledger: derive %s target", kind.Name)
	}
	return &Target{
		ExperimentKind: kind.Name,
		Label:          label,
		RoundNumber:    round.Number,
		RoundSource:    round.Source,
		Data:           data,
	}, nil
}
