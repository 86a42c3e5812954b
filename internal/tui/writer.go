// Package tui is the interactive terminal dashboard.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"subsim-ctl/internal/catalog"
	"subsim-ctl/internal/journal"
	"subsim-ctl/internal/registry"
	"subsim-ctl/internal/state"
)

// ErrClosed is returned by Confirm once the dashboard has exited.
var ErrClosed = errors.New("dashboard closed")

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// Options configure the dashboard.
type Options struct {
	Commands Commands
	Catalog  *catalog.Catalog
	Interval int
}

// Writer feeds snapshots, journal lines and registry views into the
// dashboard. It is a sink.StatusWriter and a dispatch.Confirmer.
type Writer struct {
	program teaProgram
	done    chan struct{}
	err     error
}

// NewWriter starts the bubbletea program on the alternate screen.
func NewWriter(ctx context.Context, opts Options) *Writer {
	w := &Writer{done: make(chan struct{})}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	m := newModel(ctx, opts.Commands, w, cat, opts.Interval)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	w.program = p
	go func() {
		_, w.err = p.Run()
		close(w.done)
	}()
	return w
}

// WriteSnapshot implements sink.StatusWriter.
func (w *Writer) WriteSnapshot(s state.Snapshot) error {
	w.program.Send(snapshotMsg{s})
	return nil
}

// Log appends a journal entry to the log pane.
func (w *Writer) Log(e journal.Entry) {
	w.program.Send(logMsg{e})
}

// SetRegistry replaces the configuration selector contents.
func (w *Writer) SetRegistry(v registry.View) {
	w.program.Send(registryMsg{v})
}

// SetAdminStatus shows the admin listener address.
func (w *Writer) SetAdminStatus(addr string) {
	w.program.Send(adminMsg{addr: addr})
}

// Confirm shows a yes/no dialog and blocks until the operator answers.
func (w *Writer) Confirm(ctx context.Context, prompt string) (bool, error) {
	reply := make(chan bool, 1)
	w.program.Send(confirmMsg{prompt: prompt, reply: reply})
	select {
	case yes := <-reply:
		return yes, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-w.done:
		return false, ErrClosed
	}
}

// Done is closed when the operator quits the dashboard.
func (w *Writer) Done() <-chan struct{} { return w.done }

// Close shuts down the program and waits for the terminal to be restored.
func (w *Writer) Close() error {
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	if errors.Is(w.err, tea.ErrProgramKilled) {
		return nil
	}
	return w.err
}
