package postcache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// TestFacadeConcurrentReadersSingleRefresherPerThread drives many goroutines,
// each acting as its own query-worker thread (its own tid), through the
// Get -> NoteRequests -> Refresh cycle concurrently. Every thread's slot is
// only ever touched by that thread, and ScopedLock serializes the shared
// policy-core mutations, so this must run clean under -race.
func TestFacadeConcurrentReadersSingleRefresherPerThread(t *testing.T) {
	f, err := NewFacade(Config{Policy: PolicyLRU, CapacityBytes: 1 << 20, EnableLock: true})
	require.NoError(t, err)

	const workers = 32
	const roundsPerWorker = 20

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		tid := w
		g.Go(func() error {
			for round := 0; round < roundsPerWorker; round++ {
				key := Key(tid*1000 + round)
				_, hit := f.Get(tid, key)
				payload := []byte(fmt.Sprintf("thread-%d-round-%d", tid, round))
				if err := f.NoteRequests(tid, []ReadRequest{{Key: key, Buffer: payload, Miss: !hit}}); err != nil {
					return err
				}
				if err := f.Refresh(tid); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, workers*roundsPerWorker, int(f.Stats().Miss()), "every key in this test is unique, so every lookup is a first-time miss")
}

func TestFacadeConcurrentBatchReadBookkeepingStaysConsistent(t *testing.T) {
	f, err := NewFacade(Config{
		Policy:            PolicyBatchRead,
		LFUCapacityBytes:  4096,
		FIFOCapacityBytes: 4096,
		EnableLock:        true,
	})
	require.NoError(t, err)

	const workers = 16
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		tid := w
		g.Go(func() error {
			base := Key(tid * 100)
			keys := []Key{base, base + 1, base + 2}
			var reqs []ReadRequest
			for _, k := range keys {
				_, hit := f.Get(tid, k)
				reqs = append(reqs, ReadRequest{Key: k, Buffer: []byte("v"), Miss: !hit})
			}
			if err := f.NoteRequests(tid, reqs); err != nil {
				return err
			}
			return f.Refresh(tid)
		})
	}
	require.NoError(t, g.Wait())

	f.checkInvariants() // must not panic or corrupt state under Debug-style inspection
	require.LessOrEqual(t, f.batch.currentSize(), f.batch.capacity())
}
