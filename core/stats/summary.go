package stats

import "sort"

// SessionSummary aggregates the per-kind z-scores of a session into one
// combined statistic via Stouffer's method.
type SessionSummary struct {
	PerKind   map[string]float64 `json:"perKind"`
	CombinedZ float64            `json:"combinedZ"`
	PValue    float64            `json:"pValue"`
	Kinds     []string           `json:"kinds"`
}

// Summarize combines independent per-kind z-scores. The kind list in the
// returned summary is sorted so that serialized summaries are stable.
func Summarize(perKind map[string]float64) (SessionSummary, error) {
	if len(perKind) == 0 {
		return SessionSummary{}, ErrNoSamples
	}

	kinds := make([]string, 0, len(perKind))
	for k := range perKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	zs := make([]float64, 0, len(kinds))
	for _, k := range kinds {
		zs = append(zs, perKind[k])
	}

	combined, err := StoufferCombine(zs)
	if err != nil {
		return SessionSummary{}, err
	}

	return SessionSummary{
		PerKind:   perKind,
		CombinedZ: combined,
		PValue:    OneTailedP(combined),
		Kinds:     kinds,
	}, nil
}
