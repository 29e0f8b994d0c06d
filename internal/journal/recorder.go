package journal

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/NaturesHolismMELV/AIOS/internal/intervention"
	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
)

// #region recorder
type entry struct {
	rec ledger.Record
	ev  *intervention.Event
}

// Writer is the subset of Store the recorder needs.
type Writer interface {
	WriteInteraction(rec ledger.Record, ev *intervention.Event) error
}

// Recorder moves kernel activity into the journal off the kernel's critical
// path. Observe never blocks: when the buffer is full the entry is dropped and
// counted.
type Recorder struct {
	w      Writer
	logger *slog.Logger
	queue  chan entry

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	written atomic.Int64
	failed  atomic.Int64
}

// NewRecorder creates a recorder with the given buffer size.
func NewRecorder(w Writer, buffer int, logger *slog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		w:      w,
		logger: logger.With("component", "journal"),
		queue:  make(chan entry, buffer),
	}
}

// Observe queues a record and its event. It satisfies kernel.Observer.
func (r *Recorder) Observe(rec ledger.Record, ev *intervention.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}
	var evCopy *intervention.Event
	if ev != nil {
		c := *ev
		evCopy = &c
	}
	select {
	case r.queue <- entry{rec: rec, ev: evCopy}:
	default:
		r.dropped.Add(1)
	}
}

// Run drains the queue into the store until ctx is cancelled, then flushes
// whatever is still buffered.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case e := <-r.queue:
			r.write(e)
		case <-ctx.Done():
			r.mu.Lock()
			r.closed = true
			r.mu.Unlock()
			for {
				select {
				case e := <-r.queue:
					r.write(e)
				default:
					r.logger.Info("journal stopped",
						"written", r.written.Load(), "dropped", r.dropped.Load(), "failed", r.failed.Load())
					return nil
				}
			}
		}
	}
}

func (r *Recorder) write(e entry) {
	if err := r.w.WriteInteraction(e.rec, e.ev); err != nil {
		r.failed.Add(1)
		r.logger.Error("journal write failed", "seq", e.rec.Seq, "error", err)
		return
	}
	r.written.Add(1)
}

// Stats reports written, dropped and failed entry counts.
func (r *Recorder) Stats() (written, dropped, failed int64) {
	return r.written.Load(), r.dropped.Load(), r.failed.Load()
}

// #endregion recorder
