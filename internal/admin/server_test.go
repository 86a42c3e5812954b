package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subsim-ctl/internal/journal"
	"subsim-ctl/internal/metrics"
	"subsim-ctl/internal/reconcile"
	"subsim-ctl/internal/registry"
	"subsim-ctl/internal/simclient"
	"subsim-ctl/internal/state"
)

type staticSnapshot state.Snapshot

func (s staticSnapshot) Current() state.Snapshot { return state.Snapshot(s) }

func newTestServer(t *testing.T) (*Server, *prometheus.Registry) {
	t.Helper()
	snap := staticSnapshot{
		Seq:   7,
		State: state.SimulationState{Running: true, ActiveEvents: state.ActiveEvents{"T3": {"overload": true}}},
		Link:  state.LinkConnected,
	}
	reg := registry.New()
	reg.Replace([]simclient.ConfigProfile{{ID: "1", Note: "lab"}})
	j := journal.New(zerolog.Nop())
	j.Info("Simulation started.")

	promReg := prometheus.NewRegistry()
	col, err := metrics.NewPrometheusCollector(promReg)
	require.NoError(t, err)
	col.ObserveCommand("start", "ok")

	return NewServer(Options{
		Server:   "http://sim:5001",
		Snapshot: snap,
		Registry: reg,
		Journal:  j,
		Gatherer: promReg,
		Logger:   zerolog.Nop(),
	}), promReg
}

func get(t *testing.T, s *Server, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w.Result()
}

func TestHandleView(t *testing.T) {
	s, _ := newTestServer(t)
	resp := get(t, s, "/api/view")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var v reconcile.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, uint64(7), v.Seq)
	assert.Equal(t, reconcile.BannerEvents, v.Banner.Class)
	require.Len(t, v.Events, 1)
	assert.Equal(t, "T3: Overload", v.Events[0].Text)
	require.Len(t, v.Profiles, 1)
}

func TestHandleSnapshotAndJournal(t *testing.T) {
	s, _ := newTestServer(t)

	var snap state.Snapshot
	require.NoError(t, json.NewDecoder(get(t, s, "/api/snapshot").Body).Decode(&snap))
	assert.True(t, snap.State.Running)
	assert.Equal(t, state.LinkConnected, snap.Link)

	var entries []journal.Entry
	require.NoError(t, json.NewDecoder(get(t, s, "/api/journal").Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Simulation started.", entries[0].Message)
}

func TestHandleIndexAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	body, err := io.ReadAll(get(t, s, "/").Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Status: Running (1 active event(s))")
	assert.Contains(t, string(body), `class="banner events"`)

	body, err = io.ReadAll(get(t, s, "/metrics").Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `subsim_commands_total{command="start",outcome="ok"} 1`)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/nope").StatusCode)
}

func TestEmptySources(t *testing.T) {
	s := NewServer(Options{Gatherer: prometheus.NewRegistry()})
	var entries []journal.Entry
	require.NoError(t, json.NewDecoder(get(t, s, "/api/journal").Body).Decode(&entries))
	assert.Empty(t, entries)

	var v reconcile.View
	require.NoError(t, json.NewDecoder(get(t, s, "/api/view").Body).Decode(&v))
	assert.Equal(t, "Status: Stopped", v.Banner.Text)
}

func TestStartAndShutdown(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	addrc := make(chan string, 1)
	errc := make(chan error, 1)
	go func() { errc <- s.Start(ctx, "127.0.0.1:0", func(a string) { addrc <- a }) }()

	addr := <-addrc
	resp, err := http.Get("http://" + addr + "/api/snapshot")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
