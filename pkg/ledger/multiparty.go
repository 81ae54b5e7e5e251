package ledger

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/psiforge/commit-lib/core/stats"
	"github.com/psiforge/commit-lib/pkg/common/commitstore"
	"github.com/psiforge/commit-lib/pkg/registry"
)

// PairStat is the agreement statistic for one participant pair.
type PairStat struct {
	A          string  `json:"a"`
	B          string  `json:"b"`
	Agreements int     `json:"agreements"`
	Trials     int     `json:"trials"`
	ZScore     float64 `json:"zScore"`
	PValue     float64 `json:"pValue"`
}

// MultiRevealResult discloses every participant's payload simultaneously,
// plus the pairwise and combined statistics.
type MultiRevealResult struct {
	SessionID string                            `json:"sessionId"`
	Payloads  map[string]map[string]interface{} `json:"payloads"`
	Pairwise  []PairStat                        `json:"pairwise"`
	CombinedZ float64                           `json:"combinedZ"`
	PValue    float64                           `json:"pValue"`
}

// RevealMultiParty discloses all participants' payloads at once. It fails
// with ErrIncompleteParticipants while any participant has not committed, so
// nobody can commit after seeing another's choice. Disclosure is
// all-or-nothing: nothing is returned unless every record could be marked
// revealed.
func (l *Ledger) RevealMultiParty(ctx context.Context, sessionID string, participantIDs []string) (*MultiRevealResult, error) {
	if sessionID == "" {
		return nil, errors.WithMessage(ErrInvalidInput, "missing session id")
	}
	if len(participantIDs) < 2 {
		return nil, errors.WithMessage(ErrInvalidInput, "multi-party reveal needs at least two participants")
	}

	records, err := l.store.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, errors.WithMessage(err, "ledger: load session commitments")
	}
	byOwner := make(map[string]*commitstore.Record, len(records))
	for _, record := range records {
		byOwner[record.OwnerID] = record
	}

	participants := append([]string(nil), participantIDs...)
	sort.Strings(participants)

	var kind registry.Kind
	for _, pid := range participants {
		record, ok := byOwner[pid]
		if !ok {
			return nil, errors.WithMessagef(ErrIncompleteParticipants, "participant %s", pid)
		}
		if record.Revealed {
			return nil, ErrAlreadyRevealed
		}
		k, err := registry.Lookup(record.ExperimentKind)
		if err != nil {
			return nil, errors.WithMessagef(err, "ledger: corrupted record %s", record.ID)
		}
		if k.Topology != registry.TopologyMultiParty {
			return nil, errors.WithMessagef(ErrInvalidInput, "kind %q does not use multi-party reveals", k.Name)
		}
		kind = k
	}

	// Mark every record revealed before disclosing anything. Ordering by
	// participant id keeps two concurrent group reveals from interleaving;
	// the loser of the first flip aborts with ErrAlreadyRevealed.
	for _, pid := range participants {
		if err := l.store.CompareAndMarkRevealed(ctx, byOwner[pid].ID); err != nil {
			return nil, err
		}
	}

	payloads := make(map[string]map[string]interface{}, len(participants))
	for _, pid := range participants {
		record := byOwner[pid]
		raw, _, err := l.resolvePayload(ctx, record)
		if err != nil {
			return nil, err
		}
		payload, err := decodePayload(raw)
		if err != nil {
			l.log.Error().Err(err).Str("commitment", record.ID).
				Msg("stored payload is not decodable, record is corrupted")
			return nil, errors.WithMessagef(err, "ledger: corrupted record %s", record.ID)
		}
		payloads[pid] = payload
	}

	result := &MultiRevealResult{SessionID: sessionID, Payloads: payloads}
	l.pairwiseStats(kind, participants, payloads, result)

	summary := &commitstore.ScoreSummary{
		Method:   "pairwise-agreement",
		ZScore:   result.CombinedZ,
		PValue:   result.PValue,
		ScoredAt: l.now().UTC(),
	}
	for _, pid := range participants {
		if err := l.store.SetScore(ctx, byOwner[pid].ID, summary); err != nil {
			return nil, errors.WithMessage(err, "ledger: persist session score")
		}
	}
	return result, nil
}

// pairwiseStats compares the "choices" arrays of every participant pair,
// position by position, and combines the per-pair z-scores with Stouffer's
// method.
func (l *Ledger) pairwiseStats(kind registry.Kind, participants []string, payloads map[string]map[string]interface{}, result *MultiRevealResult) {
	var zs []float64
	for i := 0; i < len(participants); i++ {
		for j := i + 1; j < len(participants); j++ {
			a, b := participants[i], participants[j]
			choicesA := intSlice(payloads[a]["choices"])
			choicesB := intSlice(payloads[b]["choices"])

			trials := len(choicesA)
			if len(choicesB) < trials {
				trials = len(choicesB)
			}
			agreements := 0
			for k := 0; k < trials; k++ {
				if choicesA[k] == choicesB[k] {
					agreements++
				}
			}

			test := stats.BinomialZTest(agreements, trials, kind.ChanceProbability)
			result.Pairwise = append(result.Pairwise, PairStat{
				A:          a,
				B:          b,
				Agreements: agreements,
				Trials:     trials,
				ZScore:     test.ZScore,
				PValue:     test.PValue,
			})
			zs = append(zs, test.ZScore)
		}
	}

	combined, err := stats.StoufferCombine(zs)
	if err != nil {
		return
	}
	result.CombinedZ = combined
	result.PValue = stats.OneTailedP(combined)
}
