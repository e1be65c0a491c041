package postcache

// promotionThresholdDefault is the default batch-size gate: a batch only
// promotes its hits when it holds more than this many requests, hits and
// misses together (see applyHits).
const promotionThresholdDefault = 4

const defaultLevels = 4

// LeveledCorrLFUCore holds L LRU cores (levels 0..L-1), each an
// independent byte-budgeted tier, with Entry.level recording which level a
// key currently lives in. Budgets default to 60% / 20% / (20%/(L-2)) each
// of total capacity; level 0 admits every new entry.
type LeveledCorrLFUCore struct {
	sink               evictSink
	levels             []*LRUCore
	promotionThreshold uint32
}

// newLeveledCorrLFUCore builds numLevels LRU cores with a budget
// split. numLevels < 2 is not meaningful (there would be no "up" to
// promote into) and is coerced to 2.
func newLeveledCorrLFUCore(sink evictSink, capacityBytes uint64, numLevels uint8, promotionThreshold uint32) *LeveledCorrLFUCore {
	if numLevels < 2 {
		numLevels = 2
	}
	if promotionThreshold == 0 {
		promotionThreshold = promotionThresholdDefault
	}
	budgets := levelBudgets(capacityBytes, numLevels)
	levels := make([]*LRUCore, numLevels)
	for i, b := range budgets {
		levels[i] = newLRUCore(sink, b)
	}
	return &LeveledCorrLFUCore{sink: sink, levels: levels, promotionThreshold: promotionThreshold}
}

// levelBudgets splits total into numLevels byte budgets: 60% to level 0,
// 20% to level 1, and the remaining 20% split evenly across levels
// 2..numLevels-1. When numLevels==2 there is no level 2+ to absorb that
// leftover 20%, so it folds into level 1 (60/40 split).
func levelBudgets(total uint64, numLevels uint8) []uint64 {
	out := make([]uint64, numLevels)
	out[0] = total * 60 / 100
	rest := total - out[0]
	if numLevels == 2 {
		out[1] = rest
		return out
	}
	out[1] = total * 20 / 100
	tailLevels := int(numLevels) - 2
	tailTotal := total - out[0] - out[1]
	per := tailTotal / uint64(tailLevels)
	for i := 2; i < int(numLevels); i++ {
		out[i] = per
	}
	// Fold any integer-division remainder into the last level so budgets
	// sum exactly to total.
	sum := uint64(0)
	for _, b := range out {
		sum += b
	}
	if sum < total {
		out[numLevels-1] += total - sum
	}
	return out
}

// onMiss admits key at level 0, the only level new entries ever enter.
func (c *LeveledCorrLFUCore) onMiss(key Key, size uint64) {
	c.levels[0].insert(key, size)
	if e, ok := c.sink.items.Get(key); ok {
		e.setLevel(0)
	}
}

// applyHits processes every hit in one refresh batch. The promotion gate
// gauges the whole batch, not its misses: when batchSize (every request
// handed to Refresh, hit or miss) exceeds the promotion threshold, each hit
// rises exactly one level, bounded by L-1; otherwise it is merely touched
// within its current level. Grounded on the original delayed-update gate,
// which keys off the total request count handed to the batch rather than
// a miss tally.
func (c *LeveledCorrLFUCore) applyHits(hits []Key, batchSize int) {
	promote := batchSize > int(c.promotionThreshold)
	for _, key := range hits {
		e, ok := c.sink.items.Get(key)
		if !ok {
			continue
		}
		level := e.Level()
		if !promote || int(level) >= len(c.levels)-1 {
			c.levels[level].touch(key)
			continue
		}
		size := e.Size()
		c.levels[level].erase(key)
		c.levels[level+1].insert(key, size)
		e.setLevel(level + 1)
	}
}

// evictAllLevels evicts every level down to its own budget, run once after
// all of a batch's promotions have been applied.
func (c *LeveledCorrLFUCore) evictAllLevels() int {
	n := 0
	for _, l := range c.levels {
		n += l.evictUntil(0)
	}
	return n
}

func (c *LeveledCorrLFUCore) contains(key Key) bool {
	for _, l := range c.levels {
		if l.contains(key) {
			return true
		}
	}
	return false
}

func (c *LeveledCorrLFUCore) currentSize() uint64 {
	var total uint64
	for _, l := range c.levels {
		total += l.currentSize()
	}
	return total
}

func (c *LeveledCorrLFUCore) capacity() uint64 {
	var total uint64
	for _, l := range c.levels {
		total += l.capacity()
	}
	return total
}
