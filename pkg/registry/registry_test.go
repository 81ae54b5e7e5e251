package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRandomness = []byte("0f0e0d0c0b0a09080706050403020100")

func TestClassify_BuiltinKinds(t *testing.T) {
	cases := map[string]Classification{
		KindPatternOracle:   {RequiresCommit: true, RevealTopology: TopologyEventWindow},
		KindRemoteViewing:   {RequiresCommit: true, RevealTopology: TopologyEventWindow},
		KindCardDraw:        {RequiresCommit: true, RevealTopology: TopologyEventWindow},
		KindChoiceMatch:     {RequiresCommit: false, RevealTopology: TopologyStandard},
		KindRNGIntent:       {RequiresCommit: false, RevealTopology: TopologyStandard},
		KindPairedIntuition: {RequiresCommit: true, RevealTopology: TopologyMultiParty},
	}
	for name, want := range cases {
		got, err := Classify(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestClassify_UnknownKind(t *testing.T) {
	_, err := Classify("tea-leaves")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRegister_Duplicate(t *testing.T) {
	err := Register(Kind{Name: KindPatternOracle})
	assert.ErrorIs(t, err, ErrDuplicateKind)
}

func TestNames_SortedAndComplete(t *testing.T) {
	names := Names()
	assert.Contains(t, names, KindPatternOracle)
	assert.Contains(t, names, KindPairedIntuition)
	assert.IsIncreasing(t, names)
}

func TestTargetGenerators_DeterministicAndWellFormed(t *testing.T) {
	grid, err := Lookup(KindPatternOracle)
	require.NoError(t, err)
	target, err := grid.Target(testRandomness, "2026-02-11/grid")
	require.NoError(t, err)
	tiles, ok := target["targetTiles"].([]uint64)
	require.True(t, ok)
	assert.Len(t, tiles, gridTargets)
	for _, tile := range tiles {
		assert.Less(t, tile, uint64(gridSize))
	}

	again, err := grid.Target(testRandomness, "2026-02-11/grid")
	require.NoError(t, err)
	assert.Equal(t, target, again)

	deck, err := Lookup(KindCardDraw)
	require.NoError(t, err)
	target, err = deck.Target(testRandomness, "2026-02-11/deck")
	require.NoError(t, err)
	order, ok := target["deckOrder"].([]int)
	require.True(t, ok)
	assert.Len(t, order, deckSize)
}

func TestViewingTarget_ResolvesTextFromPool(t *testing.T) {
	viewing, err := Lookup(KindRemoteViewing)
	require.NoError(t, err)
	target, err := viewing.Target(testRandomness, "2026-02-11/viewing")
	require.NoError(t, err)

	idx, ok := target["targetIndex"].(uint64)
	require.True(t, ok)
	require.Less(t, idx, uint64(choiceCount))

	// the committed payload must carry the text the transcript is scored
	// against, not just the index
	text, ok := target["targetText"].(string)
	require.True(t, ok)
	assert.Equal(t, viewingPool[idx], text)
}

func TestEveryKindClassifies(t *testing.T) {
	for _, name := range Names() {
		_, err := Classify(name)
		assert.NoError(t, err, name)
	}
}
