// Package admin serves a small read-only HTTP surface next to the
// dashboard: the reconciled view, the raw snapshot, the journal and
// Prometheus metrics.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"subsim-ctl/internal/catalog"
	"subsim-ctl/internal/journal"
	"subsim-ctl/internal/reconcile"
	"subsim-ctl/internal/registry"
	"subsim-ctl/internal/state"
)

//go:embed templates/index.html
var content embed.FS

// SnapshotSource returns the latest applied snapshot.
type SnapshotSource interface {
	Current() state.Snapshot
}

// RegistrySource returns the current configuration view.
type RegistrySource interface {
	View() registry.View
}

// JournalSource returns the operator log.
type JournalSource interface {
	Entries() []journal.Entry
}

// Options wire the server's data sources.
type Options struct {
	Server   string
	Catalog  *catalog.Catalog
	Snapshot SnapshotSource
	Registry RegistrySource
	Journal  JournalSource
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

type Server struct {
	opts Options
	tpl  *template.Template
	mux  *http.ServeMux
}

func NewServer(opts Options) *Server {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{opts: opts, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/view", s.handleView)
	s.mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("GET /api/journal", s.handleJournal)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Start listens on addr and serves until ctx is done. ready, if non-nil,
// receives the bound address once the listener is up.
func (s *Server) Start(ctx context.Context, addr string, ready func(string)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	if ready != nil {
		ready(ln.Addr().String())
	}
	s.opts.Logger.Info().Str("addr", ln.Addr().String()).Msg("admin server listening")

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) view() reconcile.View {
	var reg registry.View
	if s.opts.Registry != nil {
		reg = s.opts.Registry.View()
	}
	return reconcile.Render(reconcile.Input{Snapshot: s.snapshot(), Catalog: s.opts.Catalog, Registry: reg})
}

func (s *Server) snapshot() state.Snapshot {
	if s.opts.Snapshot == nil {
		return state.Snapshot{}
	}
	return s.opts.Snapshot.Current()
}

func (s *Server) entries() []journal.Entry {
	if s.opts.Journal == nil {
		return []journal.Entry{}
	}
	return s.opts.Journal.Entries()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Server  string
		View    reconcile.View
		Journal []journal.Entry
	}{
		Server:  s.opts.Server,
		View:    s.view(),
		Journal: s.entries(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		s.opts.Logger.Error().Err(err).Msg("render admin index")
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.view())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.snapshot())
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.entries())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
