package ledger

import (
	"context"

	"github.com/psiforge/commit-lib/core/stats"
	"github.com/psiforge/commit-lib/pkg/common/commitstore"
	"github.com/psiforge/commit-lib/pkg/registry"
)

// outcomeFunc converts a disclosed payload and the revealer's response into
// a trial outcome. One entry per committed kind; unknown shapes fall through
// to scoreGeneric.
type outcomeFunc func(l *Ledger, ctx context.Context, kind registry.Kind, payload map[string]interface{}, data RevealData) (stats.TrialOutcome, commitstore.ScoreSummary)

var outcomes = map[string]outcomeFunc{
	registry.KindPatternOracle: scoreGrid,
	registry.KindCardDraw:      scoreDeck,
	registry.KindRemoteViewing: scoreTranscript,
}

func (l *Ledger) scoreOutcome(ctx context.Context, kind registry.Kind, payload map[string]interface{}, data RevealData) (stats.TrialOutcome, commitstore.ScoreSummary) {
	fn, ok := outcomes[kind.Name]
	if !ok {
		fn = scoreGeneric
	}
	return fn(l, ctx, kind, payload, data)
}

func summarize(outcome stats.TrialOutcome, method string, score float64) (stats.TrialOutcome, commitstore.ScoreSummary) {
	result := stats.BinomialZTest(outcome.ObservedHits, outcome.TotalTrials, outcome.ChanceProbability)
	return outcome, commitstore.ScoreSummary{
		Hits:       outcome.ObservedHits,
		Misses:     outcome.TotalTrials - outcome.ObservedHits,
		Score:      score,
		Method:     method,
		ZScore:     result.ZScore,
		PValue:     result.PValue,
		EffectSize: result.EffectSize,
	}
}

func scoreGrid(_ *Ledger, _ context.Context, kind registry.Kind, payload map[string]interface{}, data RevealData) (stats.TrialOutcome, commitstore.ScoreSummary) {
	targets := uintSet(payload["targetTiles"])

	hits := 0
	for _, pick := range data.Selections {
		if _, ok := targets[pick]; ok {
			hits++
		}
	}
	trials := len(data.Selections)

	score := 0.0
	if trials > 0 {
		score = float64(hits) / float64(trials)
	}
	return summarize(stats.TrialOutcome{
		ObservedHits:      hits,
		TotalTrials:       trials,
		ChanceProbability: kind.ChanceProbability,
	}, "tile-match", score)
}

func scoreDeck(_ *Ledger, _ context.Context, kind registry.Kind, payload map[string]interface{}, data RevealData) (stats.TrialOutcome, commitstore.ScoreSummary) {
	order := intSlice(payload["deckOrder"])

	hits := 0
	if data.CardGuess != nil && len(order) > 0 && order[0] == *data.CardGuess {
		hits = 1
	}
	return summarize(stats.TrialOutcome{
		ObservedHits:      hits,
		TotalTrials:       1,
		ChanceProbability: kind.ChanceProbability,
	}, "card-match", float64(hits))
}

// transcriptHitThreshold is the similarity above which a free-text response
// counts as a binary hit for significance purposes.
const transcriptHitThreshold = 0.5

func scoreTranscript(l *Ledger, ctx context.Context, kind registry.Kind, payload map[string]interface{}, data RevealData) (stats.TrialOutcome, commitstore.ScoreSummary) {
	target, _ := payload["targetText"].(string)
	result := l.scores.Score(ctx, data.Transcript, target)

	hits := 0
	if result.Score >= transcriptHitThreshold {
		hits = 1
	}
	outcome, summary := summarize(stats.TrialOutcome{
		ObservedHits:      hits,
		TotalTrials:       1,
		ChanceProbability: kind.ChanceProbability,
	}, result.Method, result.Score)
	return outcome, summary
}

func scoreGeneric(l *Ledger, ctx context.Context, kind registry.Kind, payload map[string]interface{}, data RevealData) (stats.TrialOutcome, commitstore.ScoreSummary) {
	switch {
	case payload["targetTiles"] != nil:
		return scoreGrid(l, ctx, kind, payload, data)
	case payload["deckOrder"] != nil:
		return scoreDeck(l, ctx, kind, payload, data)
	case payload["targetText"] != nil:
		return scoreTranscript(l, ctx, kind, payload, data)
	}
	return summarize(stats.TrialOutcome{ChanceProbability: kind.ChanceProbability}, "unscored", 0)
}

// uintSet coerces a JSON-decoded array into a set of indices.
func uintSet(v interface{}) map[uint64]struct{} {
	out := make(map[uint64]struct{})
	arr, ok := v.([]interface{})
	if !ok {
		return out
	}
	for _, elem := range arr {
		if f, ok := elem.(float64); ok && f >= 0 {
			out[uint64(f)] = struct{}{}
		}
	}
	return out
}

// intSlice coerces a JSON-decoded array into ordered ints.
func intSlice(v interface{}) []int {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(arr))
	for _, elem := range arr {
		if f, ok := elem.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}
