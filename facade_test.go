package postcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func doQuery(t *testing.T, f *Facade, tid int, keys []Key, data map[Key][]byte) {
	t.Helper()
	var reqs []ReadRequest
	for _, k := range keys {
		_, hit := f.Get(tid, k)
		reqs = append(reqs, ReadRequest{Key: k, Buffer: data[k], Miss: !hit})
	}
	require.NoError(t, f.NoteRequests(tid, reqs))
	require.NoError(t, f.Refresh(tid))
}

func TestFacadeLRURoundTrip(t *testing.T) {
	f, err := NewFacade(Config{Policy: PolicyLRU, CapacityBytes: 3, EnableLock: true})
	require.NoError(t, err)

	data := map[Key][]byte{1: []byte("a"), 2: []byte("b"), 3: []byte("c"), 4: []byte("d")}
	doQuery(t, f, 0, []Key{1, 2, 3}, data)

	require.Equal(t, uint64(3), f.Stats().Miss(), "the initial query batch was all misses")

	e, ok := f.Get(0, 1)
	require.True(t, ok)
	require.Equal(t, Key(1), e.Key())
	require.Equal(t, uint64(1), f.Stats().Hit())
}

func TestFacadeRejectsUnknownThreadID(t *testing.T) {
	f, err := NewFacade(Config{Policy: PolicyLRU, CapacityBytes: 10})
	require.NoError(t, err)

	_, ok := f.Get(-1, 1)
	require.False(t, ok)
	require.Error(t, f.NoteRequests(MaxThreads, nil))
	require.Error(t, f.Refresh(MaxThreads+1))
}

func TestFacadeRequiresCapacityBytes(t *testing.T) {
	_, err := NewFacade(Config{Policy: PolicyLRU})
	require.Error(t, err)
}

func TestFacadeBatchReadRequiresSplitCapacities(t *testing.T) {
	_, err := NewFacade(Config{Policy: PolicyBatchRead})
	require.Error(t, err)

	f, err := NewFacade(Config{Policy: PolicyBatchRead, LFUCapacityBytes: 100, FIFOCapacityBytes: 100})
	require.NoError(t, err)
	require.NotNil(t, f.batch)
}

func TestFacadeMissThenHitLifecycle(t *testing.T) {
	f, err := NewFacade(Config{Policy: PolicyFIFO, CapacityBytes: 100})
	require.NoError(t, err)

	_, ok := f.Get(0, 7)
	require.False(t, ok, "first lookup is always a miss")

	require.NoError(t, f.NoteRequests(0, []ReadRequest{{Key: 7, Buffer: []byte("payload"), Miss: true}}))
	require.NoError(t, f.Refresh(0))

	e, ok := f.Get(1, 7)
	require.True(t, ok, "after refresh the key must be a hit for any thread")
	got := make([]byte, e.Size())
	e.CopyInto(got)
	require.Equal(t, "payload", string(got))
}

func TestFacadeBatchReadPromotesOnRepeatedHit(t *testing.T) {
	f, err := NewFacade(Config{Policy: PolicyBatchRead, LFUCapacityBytes: 100, FIFOCapacityBytes: 100})
	require.NoError(t, err)

	doQuery(t, f, 0, []Key{1, 2}, map[Key][]byte{1: []byte("a"), 2: []byte("b")})
	doQuery(t, f, 0, []Key{1}, nil) // now a FIFO hit, promotes to LFU

	require.True(t, f.batch.lfu.contains(1))
}

func TestFacadeDebugInvariantCheckDoesNotPanicOnHealthyState(t *testing.T) {
	f, err := NewFacade(Config{Policy: PolicyLFU, CapacityBytes: 10, Debug: true})
	require.NoError(t, err)
	doQuery(t, f, 0, []Key{1}, map[Key][]byte{1: []byte("a")})
	require.NotPanics(t, func() { f.checkInvariants() })
}

// TestFacadeLeveledCorrLFUPromotesOnBatchSizeNotMissCount reproduces a
// batch of 5 requests where only 1 misses: the promotion gate must key off
// the batch's total size (5 > threshold 4), not its miss count (1 is not >
// 4), so all 4 hits still rise one level. Exercises the real Get/
// NoteRequests/Refresh path rather than calling applyHits directly, so a
// regression back to gating on miss count would fail here even if a
// lower-level unit test used an arbitrary literal.
func TestFacadeLeveledCorrLFUPromotesOnBatchSizeNotMissCount(t *testing.T) {
	f, err := NewFacade(Config{
		Policy:             PolicyLeveledCorrLFU,
		CapacityBytes:      1000,
		Levels:             2,
		PromotionThreshold: 4,
	})
	require.NoError(t, err)

	data := map[Key][]byte{1: []byte("a"), 2: []byte("b"), 3: []byte("c"), 4: []byte("d")}
	doQuery(t, f, 0, []Key{1, 2, 3, 4}, data) // all misses, land at level 0

	for _, k := range []Key{1, 2, 3, 4} {
		require.Equal(t, uint8(0), f.items.m[k].Level())
	}

	// Second batch: 1,2,3,4 are now hits, 5 is a new miss — 5 requests, 4
	// hits, 1 miss, matching the documented worked example.
	doQuery(t, f, 0, []Key{1, 2, 3, 4, 5}, map[Key][]byte{5: []byte("e")})

	for _, k := range []Key{1, 2, 3, 4} {
		require.Equal(t, uint8(1), f.items.m[k].Level(),
			"each hit must rise one level: batch size 5 exceeds threshold 4 even though only 1 of 5 missed")
	}
}

func TestPolicyString(t *testing.T) {
	cases := map[Policy]string{
		PolicyLRU:            "lru",
		PolicyLFU:            "lfu",
		PolicyFIFO:           "fifo",
		Policy2Q:             "2q",
		PolicyLeveledCorrLFU: "leveled_corr_lfu",
		PolicyBatchRead:      "batch_read",
		Policy(99):           "unknown",
	}
	for p, want := range cases {
		require.Equal(t, want, p.String())
	}
}

func TestNewFacadeRejectsUnknownPolicy(t *testing.T) {
	_, err := NewFacade(Config{Policy: Policy(99), CapacityBytes: 10})
	require.Error(t, err)
}

func TestNewDevelopmentLoggerReturnsUsableLogger(t *testing.T) {
	logger := NewDevelopmentLogger()
	require.NotNil(t, logger)
	require.NotPanics(t, func() { logger.Info("facade test logger smoke check") })
}
