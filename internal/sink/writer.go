// Package sink fans applied status snapshots out to their consumers: the
// dashboard, stdout, a JSONL recording and GreptimeDB.
package sink

import (
	"errors"
	"io"

	"subsim-ctl/internal/state"
)

// StatusWriter consumes applied snapshots in apply order.
type StatusWriter interface {
	WriteSnapshot(state.Snapshot) error
}

// WriterFunc adapts a function to StatusWriter.
type WriterFunc func(state.Snapshot) error

// WriteSnapshot calls f(s).
func (f WriterFunc) WriteSnapshot(s state.Snapshot) error { return f(s) }

// Discard drops every snapshot.
var Discard StatusWriter = WriterFunc(func(state.Snapshot) error { return nil })

// MultiWriter fans snapshots out to several writers. A failing writer does
// not keep the others from receiving the snapshot.
type MultiWriter struct {
	writers []StatusWriter
}

// NewMultiWriter creates a MultiWriter, skipping nil entries.
func NewMultiWriter(ws ...StatusWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Add appends w.
func (mw *MultiWriter) Add(w StatusWriter) {
	mw.writers = append(mw.writers, w)
}

// Len returns the number of writers.
func (mw *MultiWriter) Len() int { return len(mw.writers) }

// WriteSnapshot sends s to all writers.
func (mw *MultiWriter) WriteSnapshot(s state.Snapshot) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.WriteSnapshot(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every writer that implements io.Closer.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.writers {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
