package postcache

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Policy selects one of the six interchangeable admission/eviction
// engines.
type Policy int

const (
	PolicyLRU Policy = iota
	PolicyLFU
	PolicyFIFO
	Policy2Q
	PolicyLeveledCorrLFU
	PolicyBatchRead
)

func (p Policy) String() string {
	switch p {
	case PolicyLRU:
		return "lru"
	case PolicyLFU:
		return "lfu"
	case PolicyFIFO:
		return "fifo"
	case Policy2Q:
		return "2q"
	case PolicyLeveledCorrLFU:
		return "leveled_corr_lfu"
	case PolicyBatchRead:
		return "batch_read"
	default:
		return "unknown"
	}
}

// Config is the facade's sole configuration surface.
type Config struct {
	Policy        Policy
	CapacityBytes uint64
	EnableLock    bool

	// BatchRead-only.
	LFUCapacityBytes  uint64
	FIFOCapacityBytes uint64

	// LeveledCorrLFU-only.
	Levels             uint8
	PromotionThreshold uint32

	// Debug gates whether Refresh runs the corrupt-invariant consistency
	// checks after each pass, logging any violation it finds and repairing
	// it defensively. Off by default since the checks walk every policy
	// core's bookkeeping.
	Debug bool

	// LockRingSize overrides the default acquisition-stat ring capacity
	// per handle kind; <= 0 selects the default.
	LockRingSize int

	// Logger receives diagnostic logging (construction at Info, debug-mode
	// invariant violations at Error). Misconfiguration is returned as an
	// error by NewFacade and is not logged. A nil Logger defaults to
	// zap.NewNop().
	Logger *zap.Logger
}

// Facade is the policy-agnostic get_item/note_requests/refresh interface
// the reader consumes. Exactly one of the policy-specific core
// fields is non-nil, selected by Config.Policy at construction.
type Facade struct {
	cfg    Config
	items  *ItemMap
	stats  *Stats
	trace  *StatTrace
	lock   locker
	logger *zap.Logger

	lru     *LRUCore
	lfu     *LFUCore
	fifo    *FIFOCore
	twoQ    *TwoQCore
	leveled *LeveledCorrLFUCore
	batch   *BatchReadCache

	slots [MaxThreads]*pendingSlot
}

// NewFacade builds a Facade for cfg.Policy, wiring its policy core(s) to a
// freshly allocated, shared ItemMap.
func NewFacade(cfg Config) (*Facade, error) {
	if cfg.CapacityBytes == 0 && cfg.Policy != PolicyBatchRead {
		return nil, errors.New("postcache: CapacityBytes must be > 0")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Facade{
		cfg:    cfg,
		items:  newItemMap(),
		stats:  newStats(true),
		trace:  newStatTrace(),
		logger: logger,
	}
	if cfg.EnableLock {
		f.lock = spinLocker{NewScopedLock(cfg.LockRingSize)}
	} else {
		f.lock = noopLocker{}
	}
	sink := evictSink{items: f.items, stats: f.stats}

	switch cfg.Policy {
	case PolicyLRU:
		f.lru = newLRUCore(sink, cfg.CapacityBytes)
	case PolicyLFU:
		f.lfu = newLFUCore(sink, cfg.CapacityBytes)
	case PolicyFIFO:
		f.fifo = newFIFOCore(sink, cfg.CapacityBytes)
	case Policy2Q:
		f.twoQ = newTwoQCore(sink, cfg.CapacityBytes)
	case PolicyLeveledCorrLFU:
		levels := cfg.Levels
		if levels == 0 {
			levels = defaultLevels
		}
		f.leveled = newLeveledCorrLFUCore(sink, cfg.CapacityBytes, levels, cfg.PromotionThreshold)
	case PolicyBatchRead:
		if cfg.LFUCapacityBytes == 0 && cfg.FIFOCapacityBytes == 0 {
			return nil, errors.New("postcache: BatchRead requires LFUCapacityBytes/FIFOCapacityBytes")
		}
		f.batch = newBatchReadCache(sink, cfg.LFUCapacityBytes, cfg.FIFOCapacityBytes)
	default:
		return nil, errors.Errorf("postcache: unknown policy %d", cfg.Policy)
	}

	logger.Info("postcache facade constructed",
		zap.String("policy", cfg.Policy.String()),
		zap.Uint64("capacity_bytes", cfg.CapacityBytes),
		zap.Bool("lock_enabled", cfg.EnableLock))
	return f, nil
}

func (f *Facade) slot(tid int) *pendingSlot {
	s := f.slots[tid]
	if s == nil {
		s = newPendingSlot()
		f.slots[tid] = s
	}
	return s
}

// Get resolves one query-time lookup. tid identifies the calling query worker so
// BatchRead's prefetch-window reuse and pending-update log can be kept
// per-thread; the reader is expected to call Get with the same tid it will
// later pass to NoteRequests/Refresh for this batch.
func (f *Facade) Get(tid int, key Key) (*Entry, bool) {
	if err := validateThreadID(tid); err != nil {
		return nil, false
	}
	start := time.Now()
	h := f.lock.Acquire(Search)
	defer h.Release()

	slot := f.slot(tid)
	defer func() { slot.sumGetLatency += time.Since(start) }()

	if e, ok := slot.observedWindow[key]; ok {
		delete(slot.observedWindow, key)
		slot.reuseCount++
		slot.pending[key] = tagFIFOHit
		f.stats.addHit()
		return e, true
	}

	if f.cfg.Policy == PolicyBatchRead {
		outcome, entries := f.batch.Get(key)
		switch outcome {
		case OutcomeLFUHit:
			slot.pending[key] = tagLFUHit
			f.stats.addHit()
			return entries[0], true
		case OutcomeFIFOHit:
			slot.pending[key] = tagFIFOHit
			f.stats.addHit()
			last := entries[len(entries)-1]
			if slot.observedWindow == nil {
				slot.observedWindow = make(map[Key]*Entry)
			}
			for _, e := range entries[:len(entries)-1] {
				slot.observedWindow[e.Key()] = e
			}
			return last, true
		default:
			slot.pending[key] = tagMiss
			f.stats.addMiss()
			return nil, false
		}
	}

	if e, ok := f.items.Get(key); ok {
		slot.pending[key] = tagHit
		f.stats.addHit()
		return e, true
	}
	slot.pending[key] = tagMiss
	f.stats.addMiss()
	return nil, false
}

// NoteRequests stashes a completed query batch's requests for thread tid.
// The reader is expected to have already set Miss/Buffer on each request
// from its own disk I/O completions.
func (f *Facade) NoteRequests(tid int, requests []ReadRequest) error {
	if err := validateThreadID(tid); err != nil {
		return err
	}
	slot := f.slot(tid)
	slot.requests = requests
	return nil
}

// Refresh applies every mutation for thread tid's stashed batch in one
// locked pass and records a single StatSnapshot.
func (f *Facade) Refresh(tid int) error {
	if err := validateThreadID(tid); err != nil {
		return err
	}
	start := time.Now()
	h := f.lock.Acquire(Refresh)
	defer h.Release()

	slot := f.slot(tid)
	requests := slot.requests
	defer slot.reset()

	var hits []Key
	for _, r := range requests {
		if !r.Miss {
			hits = append(hits, r.Key)
		}
	}

	switch f.cfg.Policy {
	case PolicyLRU:
		f.refreshSingleTier(requests, hits, lruAdapter{f.lru})
	case PolicyLFU:
		f.refreshSingleTier(requests, hits, lfuAdapter{f.lfu})
	case PolicyFIFO:
		f.refreshSingleTier(requests, hits, fifoAdapter{f.fifo})
	case Policy2Q:
		f.refreshTwoQ(requests, hits)
	case PolicyLeveledCorrLFU:
		f.refreshLeveled(requests, hits)
	case PolicyBatchRead:
		f.refreshBatchRead(requests, hits, slot)
	}

	f.stats.setCurrentSize(f.items.TotalSize())

	var ioLatency time.Duration
	for _, r := range requests {
		ioLatency += r.IOLatency
	}

	snap := StatSnapshot{
		HitCount:           f.stats.Hit(),
		MissCount:          f.stats.Miss(),
		ReuseCount:         uint64(slot.reuseCount),
		SumGetLatencyMS:    durationToMS(slot.sumGetLatency),
		BatchReadLatencyMS: durationToMS(ioLatency),
		BatchSize:          len(requests),
		Timestamp:          start,
	}
	if len(requests) > 0 {
		snap.LocalHitRatio = float64(len(hits)) / float64(len(requests))
	}
	f.trace.Append(snap)

	if f.cfg.Debug {
		f.checkInvariants()
	}
	return nil
}

// singleTierAdapter lets refreshSingleTier drive LRU/LFU/FIFO identically
// — they share the exact insert/touch/evictUntil shape.
type singleTierAdapter interface {
	touch(Key)
	insert(Key, uint64)
	evictUntil(int64) int
}

type lruAdapter struct{ c *LRUCore }

func (a lruAdapter) touch(k Key)            { a.c.touch(k) }
func (a lruAdapter) insert(k Key, s uint64) { a.c.insert(k, s) }
func (a lruAdapter) evictUntil(d int64) int { return a.c.evictUntil(d) }

type lfuAdapter struct{ c *LFUCore }

func (a lfuAdapter) touch(k Key)            { a.c.touch(k) }
func (a lfuAdapter) insert(k Key, s uint64) { a.c.insert(k, s) }
func (a lfuAdapter) evictUntil(d int64) int { return a.c.evictUntil(d) }

type fifoAdapter struct{ c *FIFOCore }

func (a fifoAdapter) touch(k Key)            { a.c.touch(k) }
func (a fifoAdapter) insert(k Key, s uint64) { a.c.insert(k, s) }
func (a fifoAdapter) evictUntil(d int64) int { return a.c.evictUntil(d) }

func (f *Facade) refreshSingleTier(requests []ReadRequest, hits []Key, core singleTierAdapter) {
	for _, k := range hits {
		core.touch(k)
	}
	for _, r := range requests {
		if !r.Miss {
			continue
		}
		entry, inserted := f.items.Insert(r.Key, r.Buffer)
		if !inserted {
			continue
		}
		core.insert(r.Key, entry.Size())
		core.evictUntil(0)
	}
}

func (f *Facade) refreshTwoQ(requests []ReadRequest, hits []Key) {
	for _, k := range hits {
		f.twoQ.onHit(k)
	}
	for _, r := range requests {
		if !r.Miss {
			continue
		}
		entry, inserted := f.items.Insert(r.Key, r.Buffer)
		if !inserted {
			continue
		}
		f.twoQ.onMiss(r.Key, entry.Size())
	}
}

func (f *Facade) refreshLeveled(requests []ReadRequest, hits []Key) {
	for _, r := range requests {
		if !r.Miss {
			continue
		}
		entry, inserted := f.items.Insert(r.Key, r.Buffer)
		if !inserted {
			continue
		}
		f.leveled.onMiss(r.Key, entry.Size())
	}
	// Promotion gates on the whole batch's size, not how many of its
	// members missed — a batch of mostly-hits still promotes once it's
	// big enough, per the original CacheCorrLfu delayed-update gate.
	f.leveled.applyHits(hits, len(requests))
	f.leveled.evictAllLevels()
}

func (f *Facade) refreshBatchRead(requests []ReadRequest, hits []Key, slot *pendingSlot) {
	var rb *ReadBatch
	for _, r := range requests {
		if !r.Miss {
			continue
		}
		if rb == nil {
			rb = f.batch.BeginBatch()
		}
		f.batch.AddMiss(rb, r.Key, r.Buffer)
	}
	if rb != nil {
		f.batch.CommitBatch(rb)
	}
	for _, k := range hits {
		switch slot.pending[k] {
		case tagLFUHit:
			f.batch.OnLFUHit(k)
		case tagFIFOHit:
			f.batch.OnFIFOHit(k)
		}
	}
}

// checkInvariants runs the debug-only consistency checks. Violations log at
// Error and are repaired defensively — stale bookkeeping gets erased rather
// than left to corrupt a later lookup.
func (f *Facade) checkInvariants() {
	if f.lfu != nil {
		if f.lfu.currentSize() > 0 && f.lfu.MinFreq() == 0 {
			f.logger.Error("corrupt invariant: LFU min_freq missing with non-empty core, repairing",
				zap.Error(ErrCorruptInvariant))
			f.lfu.advanceMinFreq()
		}
	}
	if f.batch != nil {
		for k, id := range f.batch.keyToBatch {
			if _, ok := f.batch.batches[id]; !ok {
				f.logger.Error("corrupt invariant: key references dead batch, repairing",
					zap.Error(ErrNoSuchBatch), zap.Uint64("key", uint64(k)), zap.Uint64("batch_id", id))
				delete(f.batch.keyToBatch, k)
			}
		}
	}
}

func durationToMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

// Trace exposes the per-refresh stat history.
func (f *Facade) Trace() *StatTrace { return f.trace }

// Stats exposes the cumulative counters.
func (f *Facade) Stats() *Stats { return f.stats }
