package postcache

// ItemMap is the single source of truth for cached content. It is
// shared by logical co-ownership between the Facade and every policy core;
// cores never hold a reference across an eviction they themselves trigger —
// they only ever hold a Key and look the Entry back up here.
//
// ItemMap performs no locking of its own. Every access happens inside the
// Facade's ScopedLock critical section, the same one that keeps policy
// metadata and ItemMap consistent.
type ItemMap struct {
	m         map[Key]*Entry
	totalSize uint64
}

// newItemMap returns an empty ItemMap.
func newItemMap() *ItemMap {
	return &ItemMap{m: make(map[Key]*Entry)}
}

// Get returns the Entry for key, if tracked.
func (im *ItemMap) Get(key Key) (*Entry, bool) {
	e, ok := im.m[key]
	return e, ok
}

// Contains reports whether key is tracked.
func (im *ItemMap) Contains(key Key) bool {
	_, ok := im.m[key]
	return ok
}

// Insert adds a new Entry built from src, unless key is already tracked —
// duplicate inserts are silently ignored and the existing entry is kept.
// Returns the live entry (new or pre-existing) and whether an insert
// actually happened.
func (im *ItemMap) Insert(key Key, src []byte) (*Entry, bool) {
	if e, ok := im.m[key]; ok {
		return e, false
	}
	e := newEntry(key, src)
	im.m[key] = e
	im.totalSize += e.size
	return e, true
}

// Remove drops key from the map and returns the removed Entry. It is the
// caller's (a policy core's) responsibility to have already erased its own
// metadata for key before calling this — ItemMap only owns content, not
// eviction order.
func (im *ItemMap) Remove(key Key) (*Entry, bool) {
	e, ok := im.m[key]
	if !ok {
		return nil, false
	}
	delete(im.m, key)
	im.totalSize -= e.size
	return e, true
}

// Len returns the number of tracked entries.
func (im *ItemMap) Len() int { return len(im.m) }

// TotalSize returns the sum of entry.size for every tracked key. This must
// equal Stats.CurrentSize() after every refresh.
func (im *ItemMap) TotalSize() uint64 { return im.totalSize }
