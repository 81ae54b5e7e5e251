package registry

import (
	"github.com/psiforge/commit-lib/core/selector"
)

// Built-in experiment kinds.
const (
	KindPatternOracle   = "pattern-oracle"
	KindRemoteViewing   = "remote-viewing"
	KindCardDraw        = "card-draw"
	KindChoiceMatch     = "choice-match"
	KindRNGIntent       = "rng-intent"
	KindPairedIntuition = "paired-intuition"
)

const (
	// pattern-oracle: a 5x5 grid with 3 target tiles.
	gridSize    = 25
	gridTargets = 3

	// card-draw: one guess against a shuffled standard deck.
	deckSize = 52

	// remote-viewing and choice-match: one target among 4 candidates.
	choiceCount = 4
)

// viewingPool is the candidate target set for remote-viewing sessions. The
// generator resolves the derived index to a concrete description so the
// committed payload carries the text the transcript is scored against.
var viewingPool = [choiceCount]string{
	"a red barn beside an open field",
	"a lighthouse on a rocky shore",
	"a suspension bridge over a river",
	"a hot air balloon above the desert",
}

func init() {
	for _, k := range []Kind{
		{
			Name:              KindPatternOracle,
			Topology:          TopologyEventWindow,
			RequiresCommit:    true,
			ChanceProbability: float64(gridTargets) / float64(gridSize),
			Target:            gridTarget,
		},
		{
			Name:              KindRemoteViewing,
			Topology:          TopologyEventWindow,
			RequiresCommit:    true,
			ChanceProbability: 1.0 / choiceCount,
			Target:            viewingTarget,
		},
		{
			Name:              KindCardDraw,
			Topology:          TopologyEventWindow,
			RequiresCommit:    true,
			ChanceProbability: 1.0 / deckSize,
			Target:            deckTarget,
		},
		{
			Name:              KindChoiceMatch,
			Topology:          TopologyStandard,
			RequiresCommit:    false,
			ChanceProbability: 1.0 / choiceCount,
			Target:            choiceTarget,
		},
		{
			Name:              KindRNGIntent,
			Topology:          TopologyStandard,
			RequiresCommit:    false,
			ChanceProbability: 0.5,
		},
		{
			Name:              KindPairedIntuition,
			Topology:          TopologyMultiParty,
			RequiresCommit:    true,
			ChanceProbability: 1.0 / choiceCount,
		},
	} {
		if err := Register(k); err != nil {
			panic(err)
		}
	}
}

func gridTarget(randomness []byte, label string) (map[string]interface{}, error) {
	tiles, err := selector.DeriveUniqueIndices(randomness, label, gridTargets, gridSize)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"targetTiles": tiles}, nil
}

func choiceTarget(randomness []byte, label string) (map[string]interface{}, error) {
	idx, err := selector.DeriveIndex(randomness, label, choiceCount)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"targetIndex": idx}, nil
}

func viewingTarget(randomness []byte, label string) (map[string]interface{}, error) {
	idx, err := selector.DeriveIndex(randomness, label, choiceCount)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"targetIndex": idx,
		"targetText":  viewingPool[idx],
	}, nil
}

func deckTarget(randomness []byte, label string) (map[string]interface{}, error) {
	order, err := selector.DerivePermutation(deckSize, randomness, label)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"deckOrder": order}, nil
}
