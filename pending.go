package postcache

import (
	"time"

	"github.com/pkg/errors"
)

// MaxThreads bounds the per-thread PendingSlot array: a fixed-size array of
// roughly 8192 slots, one per concurrent caller thread. tid must fall in
// [0, MaxThreads).
const MaxThreads = 8192

// updateTag is the pending-update log's tagged enum.
// Only BatchRead distinguishes tagLFUHit from tagFIFOHit; the single-tier
// policies only ever need tagHit/tagMiss.
type updateTag uint8

const (
	tagMiss updateTag = iota
	tagHit
	tagLFUHit
	tagFIFOHit
)

// ListInfo is the reader's per-request payload: the posting list's
// byte layout on disk. The effective cache key is ListOffset+PageOffset.
type ListInfo struct {
	TotalBytes uint64
	EleCount   uint64
	PageCount  uint64
	ListOffset uint64
	PageOffset uint64
}

// CacheKey derives the key this cache indexes posting lists by.
func (li ListInfo) CacheKey() Key { return Key(li.ListOffset + li.PageOffset) }

// ReadRequest is one element of a query batch, carrying the reader's I/O
// request shape plus the miss flag the reader computed from its own
// cache.Get call.
type ReadRequest struct {
	Key     Key
	Buffer  []byte // disk-read bytes on a miss; ignored on a hit
	Payload *ListInfo
	Status  error
	Miss    bool

	// IOLatency is the disk completion latency for this request (zero
	// for a hit, since no I/O was issued). Used to populate
	// batch_read_latency_ms in the stat trace.
	IOLatency time.Duration
}

// pendingSlot stashes one thread's in-flight query batch between
// NoteRequests and the Refresh call that consumes it. Only the
// owning thread writes to its slot in this window, so it needs no locking
// of its own.
type pendingSlot struct {
	requests []ReadRequest
	pending  map[Key]updateTag

	// observedWindow is BatchRead's reusable prefetch window: the
	// siblings of every FIFO hit in this batch so far that have not
	// yet been consumed by a later Get call.
	observedWindow map[Key]*Entry
	reuseCount     int
	sumGetLatency  time.Duration
}

func newPendingSlot() *pendingSlot {
	return &pendingSlot{pending: make(map[Key]updateTag)}
}

func (s *pendingSlot) reset() {
	s.requests = nil
	for k := range s.pending {
		delete(s.pending, k)
	}
	for k := range s.observedWindow {
		delete(s.observedWindow, k)
	}
	s.reuseCount = 0
	s.sumGetLatency = 0
}

// validateThreadID is shared by NoteRequests and Refresh.
func validateThreadID(tid int) error {
	if tid < 0 || tid >= MaxThreads {
		return errors.Wrapf(ErrUnknownThreadID, "tid=%d", tid)
	}
	return nil
}
