package postcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelBudgetsSplit(t *testing.T) {
	b := levelBudgets(1000, 4)
	require.Equal(t, uint64(600), b[0])
	require.Equal(t, uint64(200), b[1])
	require.Equal(t, uint64(100), b[2])
	require.Equal(t, uint64(100), b[3])

	var sum uint64
	for _, v := range b {
		sum += v
	}
	require.Equal(t, uint64(1000), sum, "budgets must sum exactly to total")
}

func TestLevelBudgetsTwoLevelsFoldsRemainder(t *testing.T) {
	b := levelBudgets(1000, 2)
	require.Equal(t, uint64(600), b[0])
	require.Equal(t, uint64(400), b[1], "no level 2+ to absorb the 20%, so it folds into level 1")
}

// TestLeveledCorrLFUPromotionGate: a batch whose total size is below the
// promotion threshold only touches hits in place; a batch large enough
// promotes every hit one level up. The gate gauges batch size, not miss
// count — see TestFacadeLeveledCorrLFUPromotesOnBatchSizeNotMissCount for
// the scenario that distinguishes the two.
func TestLeveledCorrLFUPromotionGate(t *testing.T) {
	sink := newTestSink()
	core := newLeveledCorrLFUCore(sink, 400, 4, 4)
	sink.items.Insert(1, []byte("a"))
	core.onMiss(1, 1)
	require.Equal(t, uint8(0), sink.items.m[1].Level())

	core.applyHits([]Key{1}, 2) // batch size 2, below threshold of 4
	require.Equal(t, uint8(0), sink.items.m[1].Level(), "below-threshold batch must not promote")

	core.applyHits([]Key{1}, 5) // batch size 5, above threshold
	require.Equal(t, uint8(1), sink.items.m[1].Level(), "above-threshold batch promotes one level")
}

func TestLeveledCorrLFUPromotionBoundedAtTopLevel(t *testing.T) {
	sink := newTestSink()
	core := newLeveledCorrLFUCore(sink, 400, 2, 1)
	sink.items.Insert(1, []byte("a"))
	core.onMiss(1, 1)

	core.applyHits([]Key{1}, 5)
	require.Equal(t, uint8(1), sink.items.m[1].Level())

	core.applyHits([]Key{1}, 5) // already at top level (1 of 2)
	require.Equal(t, uint8(1), sink.items.m[1].Level(), "must not promote past the last level")
}

func TestLeveledCorrLFUEvictAllLevels(t *testing.T) {
	sink := newTestSink()
	core := newLeveledCorrLFUCore(sink, 10, 2, 1) // 6 / 4 split
	for i, k := range []Key{1, 2, 3, 4, 5, 6, 7} {
		sink.items.Insert(k, []byte("x"))
		core.onMiss(k, 1)
		_ = i
	}
	core.evictAllLevels()
	require.LessOrEqual(t, core.levels[0].currentSize(), core.levels[0].capacity())
}
