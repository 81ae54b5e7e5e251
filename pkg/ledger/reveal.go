package ledger

import (
	"context"
	"crypto/subtle"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/psiforge/commit-lib/core/digest"
	"github.com/psiforge/commit-lib/core/stats"
	"github.com/psiforge/commit-lib/pkg/anchor"
	"github.com/psiforge/commit-lib/pkg/common/commitstore"
	"github.com/psiforge/commit-lib/pkg/registry"
)

// RevealData carries everything the committer supplies at reveal time. The
// nonce is mandatory: it was handed out at commit time and never persisted.
type RevealData struct {
	Nonce []byte

	// Selections are index picks (grid tiles, choice indices).
	Selections []uint64
	// CardGuess is the predicted top card for deck kinds.
	CardGuess *int
	// Transcript is the free-text response for similarity-scored kinds.
	Transcript string

	// Events optionally receives stage transitions; delivery never blocks.
	Events chan<- StageEvent
}

// RevealResult is returned exactly once per commitment, by the reveal call
// that won the mark-revealed race.
type RevealResult struct {
	Commitment *Commitment               `json:"commitment"`
	Payload    map[string]interface{}    `json:"payload"`
	Outcome    stats.TrialOutcome        `json:"outcome"`
	Score      *commitstore.ScoreSummary `json:"score"`
}

// RevealEventWindow performs the single-party reveal: verify the digest
// under the supplied nonce, flip revealed exactly once, score the outcome,
// and disclose the payload.
//
// A second reveal attempt fails with ErrAlreadyRevealed; the kernel rejects
// duplicates rather than replaying the stored outcome, so callers can always
// distinguish "newly revealed" from "nothing changed".
func (l *Ledger) RevealEventWindow(ctx context.Context, commitmentID, ownerID string, data RevealData) (*RevealResult, error) {
	if len(data.Nonce) == 0 {
		return nil, errors.WithMessage(ErrInvalidInput, "missing nonce")
	}

	l.emit(data.Events, commitmentID, StageRetrieve)
	record, err := l.store.Get(ctx, commitmentID)
	if err != nil {
		return nil, err
	}
	if record.OwnerID != ownerID {
		// existence is not disclosed to non-owners
		return nil, ErrNotFound
	}

	kind, err := registry.Lookup(record.ExperimentKind)
	if err != nil {
		l.log.Error().Str("commitment", record.ID).Str("kind", record.ExperimentKind).
			Msg("stored commitment references unknown experiment kind")
		return nil, errors.WithMessagef(err, "ledger: corrupted record %s", record.ID)
	}
	if kind.Topology != registry.TopologyEventWindow {
		return nil, errors.WithMessagef(ErrInvalidInput, "kind %q does not use event-window reveals", kind.Name)
	}
	if record.Revealed {
		return nil, ErrAlreadyRevealed
	}

	payloadBytes, canonical, err := l.resolvePayload(ctx, record)
	if err != nil {
		return nil, err
	}

	l.emit(data.Events, commitmentID, StageVerify)
	recomputed := digest.SumCanonical(canonical, data.Nonce)
	if subtle.ConstantTimeCompare([]byte(recomputed), []byte(record.CommitmentHash)) != 1 {
		return nil, ErrHashMismatch
	}

	// the single atomicity point: exactly one concurrent reveal passes
	if err := l.store.CompareAndMarkRevealed(ctx, commitmentID); err != nil {
		return nil, err
	}

	l.emit(data.Events, commitmentID, StageScore)
	payload, err := decodePayload(payloadBytes)
	if err != nil {
		l.log.Error().Err(err).Str("commitment", record.ID).
			Msg("stored payload is not decodable, record is corrupted")
		return nil, errors.WithMessagef(err, "ledger: corrupted record %s", record.ID)
	}

	outcome, summary := l.scoreOutcome(ctx, kind, payload, data)
	summary.ScoredAt = l.now().UTC()

	l.emit(data.Events, commitmentID, StagePersist)
	if err := l.store.SetScore(ctx, commitmentID, &summary); err != nil {
		return nil, errors.WithMessage(err, "ledger: persist score")
	}

	record.Revealed = true
	record.Score = &summary
	return &RevealResult{
		Commitment: commitmentView(record),
		Payload:    payload,
		Outcome:    outcome,
		Score:      &summary,
	}, nil
}

// resolvePayload returns the disclosed payload bytes and the canonical bytes
// the commitment digest covers. In verified mode the blob is fetched from
// anchor storage and its content address reconciled against the stored
// locator before anything else happens.
func (l *Ledger) resolvePayload(ctx context.Context, record *commitstore.Record) (payload, canonical []byte, err error) {
	if !record.Verified {
		return record.Payload, record.Payload, nil
	}

	if l.anchors == nil {
		return nil, nil, errors.WithMessage(ErrInvalidInput, "verified reveal requires anchor storage")
	}
	blob, err := l.anchors.Retrieve(ctx, record.Locator)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "ledger: retrieve anchored payload")
	}
	if anchor.Locator(blob) != record.Locator {
		return nil, nil, errors.WithMessage(ErrHashMismatch, "anchored content does not match locator")
	}

	canonical, err = digest.Canonical(locatorRef(record.Locator))
	if err != nil {
		return nil, nil, err
	}
	return blob, canonical, nil
}

func decodePayload(data []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
