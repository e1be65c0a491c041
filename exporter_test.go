package postcache

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// syncBuffer guards a strings.Builder so the exporter goroutine and the test
// goroutine reading its contents don't race on the same memory.
type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestTraceExporterWritesAndStops(t *testing.T) {
	f, err := NewFacade(Config{Policy: PolicyLRU, CapacityBytes: 10})
	require.NoError(t, err)
	f.Trace().Append(StatSnapshot{HitCount: 1})

	buf := &syncBuffer{}
	stop := f.StartTraceExporter(WithExportWriter(buf), WithExportInterval(5*time.Millisecond))

	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), tsvHeader)
	}, time.Second, 5*time.Millisecond)

	require.NotPanics(t, func() { stop() })
}

func TestTraceExporterRequiresWriter(t *testing.T) {
	f, err := NewFacade(Config{Policy: PolicyLRU, CapacityBytes: 10})
	require.NoError(t, err)
	require.Panics(t, func() { f.StartTraceExporter() })
}
