package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"subsim-ctl/internal/config"
	"subsim-ctl/internal/state"
)

const defaultGreptimePort = 4001

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter stores every applied snapshot as one row of the status
// history table.
type GreptimeDBWriter struct {
	client  greptimeClient
	table   string
	server  string
	session string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewGreptimeDBWriter connects to the gRPC endpoint in cfg ("host" or
// "host:port").
func NewGreptimeDBWriter(cfg config.Greptime, server string, logger zerolog.Logger) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	gcfg := greptime.NewConfig(host).WithPort(port).WithDatabase(cfg.Database)
	client, err := greptime.NewClient(gcfg)
	if err != nil {
		return nil, fmt.Errorf("greptimedb client: %w", err)
	}
	return &GreptimeDBWriter{
		client:  client,
		table:   cfg.Table,
		server:  server,
		session: uuid.NewString(),
		timeout: 5 * time.Second,
		logger:  logger,
	}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	if endpoint == "" {
		return "", 0, fmt.Errorf("greptimedb endpoint is empty")
	}
	host, p, err := net.SplitHostPort(endpoint)
	if err != nil {
		// no port given
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("invalid greptimedb port %q: %w", p, err)
	}
	return host, port, nil
}

// WriteSnapshot inserts one row.
func (w *GreptimeDBWriter) WriteSnapshot(s state.Snapshot) error {
	tbl, err := w.snapshotTable(s)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		w.logger.Error().Err(err).Str("table", w.table).Msg("greptimedb write failed")
		return err
	}
	w.logger.Debug().Uint64("seq", s.Seq).Msg("greptimedb wrote status row")
	return nil
}

func (w *GreptimeDBWriter) snapshotTable(s state.Snapshot) (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, err
	}
	cols := []func() error{
		func() error { return tbl.AddTagColumn("server", types.STRING) },
		func() error { return tbl.AddTagColumn("session", types.STRING) },
		func() error { return tbl.AddFieldColumn("seq", types.INT64) },
		func() error { return tbl.AddFieldColumn("running", types.BOOLEAN) },
		func() error { return tbl.AddFieldColumn("link", types.STRING) },
		func() error { return tbl.AddFieldColumn("active_count", types.INT64) },
		func() error { return tbl.AddFieldColumn("active_events", types.STRING) },
		func() error { return tbl.AddFieldColumn("error", types.STRING) },
		func() error { return tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND) },
	}
	for _, add := range cols {
		if err := add(); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, s.State.Count())
	for _, k := range s.State.Pairs() {
		keys = append(keys, k.String())
	}
	events, err := json.Marshal(keys)
	if err != nil {
		return nil, err
	}
	ts := s.ReceivedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	err = tbl.AddRow(w.server, w.session, int64(s.Seq), s.State.Running, string(s.Link),
		int64(s.State.Count()), string(events), s.Err, ts)
	if err != nil {
		return nil, err
	}
	return tbl, nil
}
