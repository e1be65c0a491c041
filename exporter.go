package postcache

import (
	"io"
	"time"

	"go.uber.org/zap"
)

// ExportOption configures a background trace exporter. Functional options
// here because adding a new knob (compression, a second writer, a custom
// tick source) shouldn't change StartTraceExporter's signature.
type ExportOption func(*traceExporter)

// WithExportInterval overrides the default export tick.
func WithExportInterval(d time.Duration) ExportOption {
	return func(e *traceExporter) { e.interval = d }
}

// WithExportWriter sets the destination for each tick's TSV dump. Required;
// StartTraceExporter panics if no writer was supplied.
func WithExportWriter(w io.Writer) ExportOption {
	return func(e *traceExporter) { e.w = w }
}

type traceExporter struct {
	trace    *StatTrace
	w        io.Writer
	interval time.Duration
	stopChan chan struct{}
}

// StartTraceExporter launches a background goroutine that dumps the
// facade's StatTrace as TSV to w on every tick, using a ticker-goroutine-
// stopChan lifecycle for periodic observability export (this cache has no
// TTL concept: entries only ever leave through policy eviction, which
// Refresh already drives).
//
// The returned stop function must be called at most once; calling it a
// second time panics, exactly like closing an already-closed channel would.
func (f *Facade) StartTraceExporter(opts ...ExportOption) (stop func()) {
	e := &traceExporter{
		trace:    f.trace,
		interval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.w == nil {
		panic("postcache: StartTraceExporter requires WithExportWriter")
	}
	if e.interval <= 0 {
		e.interval = 5 * time.Second
	}
	e.stopChan = make(chan struct{})

	ticker := time.NewTicker(e.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := e.trace.ExportTSV(e.w); err != nil {
					f.logger.Warn("trace export failed", zap.Error(err))
				}
			case <-e.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(e.stopChan) }
}
