package postcache

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StatSnapshot is one row of the stat trace: the cumulative
// counters as of one refresh, plus the batch-local figures that only make
// sense at refresh granularity.
type StatSnapshot struct {
	HitCount           uint64
	MissCount          uint64
	ReuseCount         uint64
	SumGetLatencyMS    float64
	BatchReadLatencyMS float64
	LocalHitRatio      float64 // hits in this batch ÷ batch size
	BatchSize          int
	Timestamp          time.Time
}

// StatTrace is an append-only sequence of StatSnapshots, one per refresh.
// Safe for concurrent Append from multiple refreshers (only one refresh
// runs at a time under the facade lock, but Export may be called from a
// separate monitoring goroutine).
type StatTrace struct {
	mu        sync.Mutex
	snapshots []StatSnapshot
}

func newStatTrace() *StatTrace {
	return &StatTrace{}
}

// Append records one refresh's snapshot.
func (t *StatTrace) Append(s StatSnapshot) {
	t.mu.Lock()
	t.snapshots = append(t.snapshots, s)
	t.mu.Unlock()
}

// Len returns the number of recorded snapshots.
func (t *StatTrace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.snapshots)
}

// Snapshot returns a copy of the snapshot at index i.
func (t *StatTrace) Snapshot(i int) (StatSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.snapshots) {
		return StatSnapshot{}, false
	}
	return t.snapshots[i], true
}

// tsvHeader is the fixed stat export column set: one row per
// refresh, columns hit_count, miss_count, reuse_count, sum_get_latency_ms,
// batch_read_latency_ms.
const tsvHeader = "hit_count\tmiss_count\treuse_count\tsum_get_latency_ms\tbatch_read_latency_ms\n"

// ExportTSV writes the full trace to w as tab-separated values, one row per
// refresh, in a fixed column order.
func (t *StatTrace) ExportTSV(w io.Writer) error {
	t.mu.Lock()
	rows := make([]StatSnapshot, len(t.snapshots))
	copy(rows, t.snapshots)
	t.mu.Unlock()

	if _, err := io.WriteString(w, tsvHeader); err != nil {
		return err
	}
	for _, s := range rows {
		_, err := fmt.Fprintf(w, "%d\t%d\t%d\t%f\t%f\n",
			s.HitCount, s.MissCount, s.ReuseCount, s.SumGetLatencyMS, s.BatchReadLatencyMS)
		if err != nil {
			return err
		}
	}
	return nil
}
