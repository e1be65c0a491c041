package postcache

import "container/list"

// GetOutcome classifies what a BatchReadCache.Get call found.
type GetOutcome int

const (
	// OutcomeMiss means key is not cached anywhere in this policy.
	OutcomeMiss GetOutcome = iota
	// OutcomeLFUHit means key was found in the hot PostingListLFU tier.
	OutcomeLFUHit
	// OutcomeFIFOHit means key was found inside a live ReadBatch.
	OutcomeFIFOHit
)

// ReadBatch is a group of posting lists fetched together on one query
// miss, retained together in the FIFO tier so a later query touching any
// member prefetches its siblings.
type ReadBatch struct {
	id         uint64
	totalBytes uint64
	seq        *list.List // insertion order within the batch
	pos        map[Key]*list.Element
}

func newReadBatch(id uint64) *ReadBatch {
	return &ReadBatch{id: id, seq: list.New(), pos: make(map[Key]*list.Element)}
}

// Len returns the number of posting lists still grouped in this batch.
func (b *ReadBatch) Len() int { return b.seq.Len() }

func (b *ReadBatch) add(key Key, size uint64) {
	e := b.seq.PushBack(lruElem{key: key, size: size})
	b.pos[key] = e
	b.totalBytes += size
}

func (b *ReadBatch) remove(key Key) {
	e, ok := b.pos[key]
	if !ok {
		return
	}
	b.totalBytes -= e.Value.(lruElem).size
	b.seq.Remove(e)
	delete(b.pos, key)
}

// members returns every key in the batch in fetch order.
func (b *ReadBatch) members() []Key {
	out := make([]Key, 0, b.seq.Len())
	for e := b.seq.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(lruElem).key)
	}
	return out
}

// BatchReadCache composes a hot-item LFU ("PostingListLFU") with a FIFO of
// ReadBatch groups ("ReadBatchFIFO"). A key is tracked by exactly
// one of the two tiers at a time.
type BatchReadCache struct {
	sink evictSink

	lfu     *LFUCore
	fifoCap uint64

	batches    map[uint64]*ReadBatch
	fifoOrder  *list.List // batch ids, oldest at back
	fifoPos    map[uint64]*list.Element
	fifoBytes  uint64
	keyToBatch map[Key]uint64

	nextBatchID uint64
	freeIDs     []uint64
}

func newBatchReadCache(sink evictSink, lfuCapacityBytes, fifoCapacityBytes uint64) *BatchReadCache {
	return &BatchReadCache{
		sink:        sink,
		lfu:         newLFUCore(sink, lfuCapacityBytes),
		fifoCap:     fifoCapacityBytes,
		batches:     make(map[uint64]*ReadBatch),
		fifoOrder:   list.New(),
		fifoPos:     make(map[uint64]*list.Element),
		keyToBatch:  make(map[Key]uint64),
		nextBatchID: 1,
	}
}

// Get resolves one query-time lookup without mutating any metadata.
// On an LFU hit it returns the single entry; on a FIFO hit it returns every
// member of the live batch with key last, the "reusable prefetch window"
// the facade hands back to later Get calls in the same query batch.
func (c *BatchReadCache) Get(key Key) (GetOutcome, []*Entry) {
	if c.lfu.contains(key) {
		if e, ok := c.sink.items.Get(key); ok {
			return OutcomeLFUHit, []*Entry{e}
		}
	}
	if batchID, ok := c.keyToBatch[key]; ok {
		if batch, ok := c.batches[batchID]; ok {
			members := batch.members()
			out := make([]*Entry, 0, len(members))
			var last *Entry
			for _, k := range members {
				e, ok := c.sink.items.Get(k)
				if !ok {
					continue
				}
				if k == key {
					last = e
					continue
				}
				out = append(out, e)
			}
			if last != nil {
				out = append(out, last)
			}
			return OutcomeFIFOHit, out
		}
	}
	return OutcomeMiss, nil
}

// allocateBatchID pulls from the free list first, then the monotonic
// counter, so a freed id only gets reused once no batch still holds it.
func (c *BatchReadCache) allocateBatchID() uint64 {
	if n := len(c.freeIDs); n > 0 {
		id := c.freeIDs[n-1]
		c.freeIDs = c.freeIDs[:n-1]
		return id
	}
	id := c.nextBatchID
	c.nextBatchID++
	return id
}

// deallocateBatchID returns an allocated-but-unused id to the free list —
// the race-loser path: a second concurrent miss on the same key allocated a
// batch_id it never ended up using.
func (c *BatchReadCache) deallocateBatchID(id uint64) {
	c.freeIDs = append(c.freeIDs, id)
}

// BeginBatch starts a new under-construction ReadBatch for one refresh
// call's miss set.
func (c *BatchReadCache) BeginBatch() *ReadBatch {
	return newReadBatch(c.allocateBatchID())
}

// AddMiss inserts a freshly read posting list into the shared ItemMap and
// folds it into the under-construction batch.
// Already-tracked keys are left untouched.
func (c *BatchReadCache) AddMiss(rb *ReadBatch, key Key, raw []byte) {
	if c.contains(key) {
		return
	}
	entry, inserted := c.sink.items.Insert(key, raw)
	if !inserted {
		return
	}
	rb.add(key, entry.Size())
	c.keyToBatch[key] = rb.id
}

// CommitBatch inserts a non-empty under-construction batch into the
// ReadBatchFIFO tier and evicts the tier to budget. An empty batch (every
// miss in it raced and lost, see AddMiss) simply releases its id.
func (c *BatchReadCache) CommitBatch(rb *ReadBatch) {
	if rb.Len() == 0 {
		c.deallocateBatchID(rb.id)
		return
	}
	c.batches[rb.id] = rb
	e := c.fifoOrder.PushFront(rb.id)
	c.fifoPos[rb.id] = e
	c.fifoBytes += rb.totalBytes
	c.evictFIFOToBudget()
}

// evictFIFOToBudget drops the oldest live batches until fifoBytes fits
// fifoCap. Every evicted batch's members vanish from both the shared
// ItemMap and keyToBatch, and the freed batch_id becomes reallocatable.
// A single oversized batch (its own total_bytes alone exceeds fifoCap) is
// left alone once it is the only batch tracked, matching the single-tier
// cores' OutOfCapacity handling: fifoBytes stays above fifoCap until a
// later commit, once this is no longer the sole live batch, evicts it.
func (c *BatchReadCache) evictFIFOToBudget() {
	for c.fifoBytes > c.fifoCap {
		if c.fifoOrder.Len() <= 1 {
			break
		}
		back := c.fifoOrder.Back()
		if back == nil {
			return
		}
		id := back.Value.(uint64)
		batch := c.batches[id]
		for _, k := range batch.members() {
			c.sink.removeFromItemMap(k)
			delete(c.keyToBatch, k)
		}
		c.fifoBytes -= batch.totalBytes
		c.fifoOrder.Remove(back)
		delete(c.fifoPos, id)
		delete(c.batches, id)
		c.deallocateBatchID(id)
	}
}

// OnFIFOHit pulls key out of its batch (erasing the batch if it's now empty
// and freeing its id), makes room in the LFU tier, and promotes key there.
func (c *BatchReadCache) OnFIFOHit(key Key) {
	batchID, ok := c.keyToBatch[key]
	if !ok {
		return
	}
	batch, ok := c.batches[batchID]
	if !ok {
		delete(c.keyToBatch, key)
		return
	}
	size := uint64(0)
	if e, ok := c.sink.items.Get(key); ok {
		size = e.Size()
	}
	batch.remove(key)
	c.fifoBytes -= size
	delete(c.keyToBatch, key)
	if batch.Len() == 0 {
		c.fifoOrder.Remove(c.fifoPos[batchID])
		delete(c.fifoPos, batchID)
		delete(c.batches, batchID)
		c.deallocateBatchID(batchID)
	}
	c.lfu.evictUntil(int64(size))
	c.lfu.insert(key, size)
}

// OnLFUHit records a hit in the hot tier: a plain LFU touch.
func (c *BatchReadCache) OnLFUHit(key Key) {
	c.lfu.touch(key)
}

func (c *BatchReadCache) contains(key Key) bool {
	if c.lfu.contains(key) {
		return true
	}
	_, ok := c.keyToBatch[key]
	return ok
}

func (c *BatchReadCache) currentSize() uint64 { return c.lfu.currentSize() + c.fifoBytes }

func (c *BatchReadCache) capacity() uint64 { return c.lfu.capacity() + c.fifoCap }

// liveBatchCount reports how many ReadBatches are currently tracked
// (test/debug helper).
func (c *BatchReadCache) liveBatchCount() int { return len(c.batches) }
