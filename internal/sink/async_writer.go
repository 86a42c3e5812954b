package sink

import (
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"subsim-ctl/internal/state"
)

// DefaultQueueSize is the AsyncWriter backlog used when none is given.
const DefaultQueueSize = 256

// ErrQueueFull is returned when a snapshot is dropped because the backlog
// is full.
var ErrQueueFull = errors.New("snapshot queue full")

// AsyncWriter hands snapshots to a slow writer (a network recorder) from a
// single goroutine, preserving their order. WriteSnapshot never blocks.
type AsyncWriter struct {
	next   StatusWriter
	queue  chan state.Snapshot
	logger zerolog.Logger
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// NewAsyncWriter starts draining into next. size <= 0 selects
// DefaultQueueSize.
func NewAsyncWriter(next StatusWriter, size int, logger zerolog.Logger) *AsyncWriter {
	if size <= 0 {
		size = DefaultQueueSize
	}
	w := &AsyncWriter{
		next:   next,
		queue:  make(chan state.Snapshot, size),
		logger: logger,
		done:   make(chan struct{}),
	}
	go w.drain()
	return w
}

func (w *AsyncWriter) drain() {
	defer close(w.done)
	for s := range w.queue {
		if err := w.next.WriteSnapshot(s); err != nil {
			w.logger.Error().Err(err).Uint64("seq", s.Seq).Msg("history write failed")
		}
	}
}

// WriteSnapshot queues s. A full backlog drops s and returns ErrQueueFull.
func (w *AsyncWriter) WriteSnapshot(s state.Snapshot) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return io.ErrClosedPipe
	}
	select {
	case w.queue <- s:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close flushes the backlog, then closes the wrapped writer if it is an
// io.Closer.
func (w *AsyncWriter) Close() error {
	var err error
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.queue)
		w.mu.Unlock()
		<-w.done
		if c, ok := w.next.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
