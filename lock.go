package postcache

import (
	"runtime"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// defaultLockStatRingSize bounds each handle kind's acquisition-stat ring: a
// bounded circular buffer with an overflow counter, rather than eagerly
// allocating an unbounded history of acquisition timestamps.
const defaultLockStatRingSize = 65536

// HandleKind distinguishes the two logical lock handles the facade hands
// out: queries taking the fast get() path, and the single post-I/O refresh.
type HandleKind int

const (
	// Search is the handle kind used by the read-mostly Get path.
	Search HandleKind = iota
	// Refresh is the handle kind used by the post-I/O mutation phase.
	Refresh
)

// LockStat records one acquisition's timing.
type LockStat struct {
	RequestedAt time.Time
	AcquiredAt  time.Time
	ReleasedAt  time.Time
}

// lockStatRing is a fixed-capacity circular buffer of LockStats. Once full,
// new writes overwrite the oldest entry, and overflow counts each further
// wrap of the ring after the first fill — stats stop being individually
// recoverable past that point, but the lock itself keeps working.
type lockStatRing struct {
	mu       sync.Mutex
	buf      []LockStat
	next     int
	filled   bool
	overflow uint64
}

func newLockStatRing(size int) *lockStatRing {
	if size <= 0 {
		size = defaultLockStatRingSize
	}
	return &lockStatRing{buf: make([]LockStat, size)}
}

func (r *lockStatRing) record(s LockStat) {
	r.mu.Lock()
	r.buf[r.next] = s
	r.next++
	if r.next >= len(r.buf) {
		r.next = 0
		if r.filled {
			r.overflow++
		}
		r.filled = true
	}
	r.mu.Unlock()
}

// Len returns how many stats are currently retained.
func (r *lockStatRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filled {
		return len(r.buf)
	}
	return r.next
}

// Overflow returns how many times the ring has wrapped around after its
// first fill (one count per len(buf) records, not one per overwritten
// record).
func (r *lockStatRing) Overflow() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overflow
}

// ScopedLock is a spin lock with two-phase acquisition timing, exposed
// through two logical handles — Search and Refresh — each backed by its
// own bounded stat ring. Both handles contend for the same
// underlying lock word: the facade runs one shared critical section, not
// separate locks per handle kind, so splitting the rings is purely about
// attributing acquisition latency to the right caller population.
type ScopedLock struct {
	state   atomic.Bool // true == held
	search  *lockStatRing
	refresh *lockStatRing
}

// NewScopedLock returns an unheld ScopedLock. ringSize <= 0 selects the
// default ring capacity.
func NewScopedLock(ringSize int) *ScopedLock {
	return &ScopedLock{
		search:  newLockStatRing(ringSize),
		refresh: newLockStatRing(ringSize),
	}
}

// LockHandle is returned by Acquire and must be passed back to Release —
// Release requires the handle returned at acquire.
type LockHandle struct {
	lock *ScopedLock
	kind HandleKind
	stat LockStat
}

// Acquire spins until the lock is free, then marks it held and starts
// timing. kind selects which stat ring this acquisition is attributed to.
func (l *ScopedLock) Acquire(kind HandleKind) *LockHandle {
	requestedAt := time.Now()
	spins := 0
	for !l.state.CompareAndSwap(false, true) {
		spins++
		if spins < 30 {
			// Busy-spin briefly: acquisitions are expected to be short,
			// memory-only critical sections, so yielding the OS thread
			// immediately would cost more than a few spins.
			continue
		}
		runtime.Gosched()
	}
	return &LockHandle{
		lock: l,
		kind: kind,
		stat: LockStat{RequestedAt: requestedAt, AcquiredAt: time.Now()},
	}
}

// Release unlocks and records the completed acquisition's timing into the
// handle kind's ring. Scoped acquisition with guaranteed release on all
// exit paths is the caller's responsibility — every Facade method does
// `defer h.Release()` immediately after Acquire succeeds.
func (h *LockHandle) Release() {
	h.stat.ReleasedAt = time.Now()
	h.lock.state.Store(false)
	switch h.kind {
	case Search:
		h.lock.search.record(h.stat)
	case Refresh:
		h.lock.refresh.record(h.stat)
	}
}

// StatRingLen reports how many acquisitions of kind are currently retained
// (for tests/observability).
func (l *ScopedLock) StatRingLen(kind HandleKind) int {
	if kind == Search {
		return l.search.Len()
	}
	return l.refresh.Len()
}

// Releaser is the handle-release half of the locker abstraction.
type Releaser interface {
	Release()
}

// locker is the facade-internal locking abstraction. Config.EnableLock
// selects between the real spin lock and a no-op, for single-threaded
// embeddings that don't want synchronization overhead.
type locker interface {
	Acquire(kind HandleKind) Releaser
}

// spinLocker adapts *ScopedLock's concrete *LockHandle return to the
// locker interface's Releaser return.
type spinLocker struct{ *ScopedLock }

func (l spinLocker) Acquire(kind HandleKind) Releaser { return l.ScopedLock.Acquire(kind) }

// noopLocker is used when Config.EnableLock is false.
type noopLocker struct{}

func (noopLocker) Acquire(HandleKind) Releaser { return noopReleaser{} }

type noopReleaser struct{}

func (noopReleaser) Release() {}
