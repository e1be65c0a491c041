package postcache

// policyCore is the common shape of LRU, LFU, and FIFO: a
// uniform insert/touch/erase/evict_until trait over keys tracked against a
// byte budget. The composite policies (2Q, LeveledCorrLFU, BatchRead) are
// built by composing two or more of these rather than re-implementing
// eviction bookkeeping.
//
// A policyCore never holds bytes — only keys and sizes — and every mutating
// method assumes the caller already holds the facade's ScopedLock.
type policyCore interface {
	// insert tracks key (of the given size) as freshly admitted. key must
	// not already be tracked.
	insert(key Key, size uint64)

	// touch records an access to an already-tracked key, updating
	// recency/frequency ordering per the concrete policy.
	touch(key Key)

	// erase stops tracking key. It does not touch the ItemMap — the
	// caller decides whether the Entry itself is removed.
	erase(key Key)

	// evictUntil evicts from this core (and the shared ItemMap) until
	// currentSize()+budgetDelta <= capacity, returning the number of
	// entries evicted.
	evictUntil(budgetDelta int64) int

	// contains reports whether key is currently tracked by this core.
	contains(key Key) bool

	// currentSize returns Σ size of every key this core tracks.
	currentSize() uint64

	// capacity returns this core's byte budget.
	capacity() uint64
}

// evictSink is the minimal surface a policyCore needs from its owner to
// remove an Entry from the shared ItemMap and bump the shared Stats —
// passed at core construction so the core never needs a direct Facade
// reference.
type evictSink struct {
	items *ItemMap
	stats *Stats
}

// removeFromItemMap deletes key from the shared ItemMap and folds its size
// out of Stats.current_size, recording one eviction.
func (s evictSink) removeFromItemMap(key Key) {
	if _, ok := s.items.Remove(key); ok {
		s.stats.addEvict(1)
		s.stats.setCurrentSize(s.items.TotalSize())
	}
}
