package postcache

import "go.uber.org/atomic"

// Stats holds the running hit/miss/evict/current-size counters.
// Threaded selects the concurrency-safe path: when true, every
// counter is a go.uber.org/atomic.Uint64 (atomic Add for hit/miss/evict,
// atomic Store for current size); when false, Stats degrades to plain
// scalars for single-threaded embedding.
//
// The Facade always runs Threaded, since Get and Refresh are called
// concurrently by many readers against one shared cache; the untyped-scalar
// path exists so Stats can be embedded standalone (e.g. in tests that don't
// want atomic overhead) without changing its API.
type Stats struct {
	threaded bool

	hit         atomic.Uint64
	miss        atomic.Uint64
	evict       atomic.Uint64
	currentSize atomic.Uint64

	plainHit         uint64
	plainMiss        uint64
	plainEvict       uint64
	plainCurrentSize uint64
}

// newStats returns Stats configured for the given threading mode.
func newStats(threaded bool) *Stats {
	return &Stats{threaded: threaded}
}

func (s *Stats) addHit() {
	if s.threaded {
		s.hit.Add(1)
		return
	}
	s.plainHit++
}

func (s *Stats) addMiss() {
	if s.threaded {
		s.miss.Add(1)
		return
	}
	s.plainMiss++
}

func (s *Stats) addEvict(n uint64) {
	if n == 0 {
		return
	}
	if s.threaded {
		s.evict.Add(n)
		return
	}
	s.plainEvict += n
}

func (s *Stats) setCurrentSize(v uint64) {
	if s.threaded {
		s.currentSize.Store(v)
		return
	}
	s.plainCurrentSize = v
}

// Hit returns the cumulative hit count.
func (s *Stats) Hit() uint64 {
	if s.threaded {
		return s.hit.Load()
	}
	return s.plainHit
}

// Miss returns the cumulative miss count.
func (s *Stats) Miss() uint64 {
	if s.threaded {
		return s.miss.Load()
	}
	return s.plainMiss
}

// Evict returns the cumulative eviction count: the number of
// entries ever removed from ItemMap other than through explicit erase.
func (s *Stats) Evict() uint64 {
	if s.threaded {
		return s.evict.Load()
	}
	return s.plainEvict
}

// CurrentSize returns Σ entry.size across the ItemMap as of the last
// refresh.
func (s *Stats) CurrentSize() uint64 {
	if s.threaded {
		return s.currentSize.Load()
	}
	return s.plainCurrentSize
}
