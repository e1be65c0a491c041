package postcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListInfoCacheKey(t *testing.T) {
	li := ListInfo{ListOffset: 1000, PageOffset: 42}
	require.Equal(t, Key(1042), li.CacheKey())
}

func TestValidateThreadID(t *testing.T) {
	require.NoError(t, validateThreadID(0))
	require.NoError(t, validateThreadID(MaxThreads-1))
	require.Error(t, validateThreadID(-1))
	require.Error(t, validateThreadID(MaxThreads))
}

func TestPendingSlotReset(t *testing.T) {
	s := newPendingSlot()
	s.requests = []ReadRequest{{Key: 1}}
	s.pending[1] = tagHit
	s.observedWindow = map[Key]*Entry{1: newEntry(1, []byte("x"))}
	s.reuseCount = 3

	s.reset()

	require.Nil(t, s.requests)
	require.Empty(t, s.pending)
	require.Empty(t, s.observedWindow)
	require.Zero(t, s.reuseCount)
	require.Zero(t, s.sumGetLatency)
}
