package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"subsim-ctl/internal/catalog"
	"subsim-ctl/internal/reconcile"
	"subsim-ctl/internal/registry"
	"subsim-ctl/internal/state"
)

// StdoutWriter prints the reconciled status whenever it changes.
type StdoutWriter struct {
	mu      sync.Mutex
	out     io.Writer
	catalog *catalog.Catalog
	view    func() registry.View
	last    string
}

// NewStdoutWriter creates a StdoutWriter on out, or os.Stdout when out is
// nil. views may be nil.
func NewStdoutWriter(out io.Writer, cat *catalog.Catalog, views func() registry.View) *StdoutWriter {
	if out == nil {
		out = os.Stdout
	}
	if views == nil {
		views = func() registry.View { return registry.View{} }
	}
	return &StdoutWriter{out: out, catalog: cat, view: views}
}

// WriteSnapshot renders s and prints it unless it matches the previous
// output.
func (w *StdoutWriter) WriteSnapshot(s state.Snapshot) error {
	v := reconcile.Render(reconcile.Input{Snapshot: s, Catalog: w.catalog, Registry: w.view()})
	text := strings.Join(v.Lines(), "\n")

	w.mu.Lock()
	defer w.mu.Unlock()
	if text == w.last {
		return nil
	}
	w.last = text
	_, err := fmt.Fprintf(w.out, "[%s] %s\n", s.ReceivedAt.Format("15:04:05"), text)
	return err
}

// JSONStdoutWriter prints every snapshot as one JSON line.
type JSONStdoutWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to out, or
// os.Stdout when out is nil.
func NewJSONStdoutWriter(out io.Writer) *JSONStdoutWriter {
	if out == nil {
		out = os.Stdout
	}
	return &JSONStdoutWriter{out: out}
}

// WriteSnapshot outputs s in JSON format.
func (w *JSONStdoutWriter) WriteSnapshot(s state.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
