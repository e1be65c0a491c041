package postcache

import "unsafe"

// alignment is the O_DIRECT-friendly allocation boundary for cached
// posting-list bytes.
const alignment = 4096

// Key identifies a cached posting list: a disk byte offset folded together
// with the intra-page offset.
type Key uint64

// newAlignedBuffer returns a slice of length size whose backing array starts
// on a 4 KiB boundary. Go has no posix_memalign, so this over-allocates and
// slices to the first aligned offset — the standard idiom for O_DIRECT-style
// alignment in pure Go.
func newAlignedBuffer(size int) []byte {
	if size <= 0 {
		return nil
	}
	raw := make([]byte, size+alignment-1)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	offset := int((alignment - (addr % alignment)) % alignment)
	return raw[offset : offset+size : offset+size]
}

// Entry is the single owner of one posting list's bytes. It has no
// knowledge of any policy: policy cores only ever hold its Key, and look it
// up through the ItemMap.
type Entry struct {
	key   Key
	bytes []byte
	size  uint64
	level uint8  // LeveledCorrLFU residency level; unused by other policies.
	freq  uint64 // LFU-family access frequency; unused by other policies.
}

// newEntry constructs an Entry by copying src into a freshly aligned
// allocation.
func newEntry(key Key, src []byte) *Entry {
	buf := newAlignedBuffer(len(src))
	copy(buf, src)
	return &Entry{
		key:   key,
		bytes: buf,
		size:  uint64(len(src)),
		freq:  1,
	}
}

// Key returns the entry's cache key.
func (e *Entry) Key() Key { return e.key }

// Size returns the number of logical bytes stored, O(1).
func (e *Entry) Size() uint64 { return e.size }

// Level returns the LeveledCorrLFU residency level (0 if the active policy
// isn't LeveledCorrLFU).
func (e *Entry) Level() uint8 { return e.level }

// Freq returns the LFU-family access frequency. Every entry starts at 1 on
// insertion; the value is only meaningful when the active policy is one of
// the LFU family.
func (e *Entry) Freq() uint64 { return e.freq }

// CopyInto copies the entry's bytes into dst and returns the number of
// bytes copied. This is the only way callers observe Entry contents —
// mirroring the reader's "memcpy bytes into requests[i].buffer" contract
// and keeping Entry's backing array from escaping past an eviction.
func (e *Entry) CopyInto(dst []byte) int {
	return copy(dst, e.bytes)
}

// setLevel and bumpFreq are unexported: level/freq mutation is required to
// go through methods that also update policy metadata, never direct field
// writes from outside the package. Policy cores call these while holding
// the facade lock, in the same critical section that updates their own
// bucket/list bookkeeping.
func (e *Entry) setLevel(l uint8) { e.level = l }

func (e *Entry) bumpFreq() uint64 {
	e.freq++
	return e.freq
}

func (e *Entry) resetFreq() {
	e.freq = 1
}
