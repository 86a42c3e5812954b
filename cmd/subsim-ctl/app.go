package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"subsim-ctl/internal/catalog"
	"subsim-ctl/internal/config"
	"subsim-ctl/internal/dispatch"
	"subsim-ctl/internal/journal"
	"subsim-ctl/internal/logging"
	"subsim-ctl/internal/metrics"
	"subsim-ctl/internal/poller"
	"subsim-ctl/internal/registry"
	"subsim-ctl/internal/simclient"
	"subsim-ctl/internal/sink"
)

// app holds the collaborators every command builds on.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	catalog  *catalog.Catalog
	client   *simclient.Client
	registry *registry.Registry
	gatherer *prometheus.Registry
	metrics  *metrics.PrometheusCollector
	closeLog func()
}

// newApp loads configuration and wires the shared components. Logs go to
// logOut unless logging.file is configured.
func newApp(opts *globalOptions, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath, !opts.configSet)
	if err != nil {
		return nil, err
	}
	if opts.server != "" {
		cfg.Server.BaseURL = strings.TrimRight(opts.server, "/")
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	logger, closeLog, err := logging.Setup(cfg.Logging, logOut)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		closeLog()
		return nil, err
	}
	reg := prometheus.NewRegistry()
	col, err := metrics.NewPrometheusCollector(reg)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	client := simclient.NewClient(simclient.FromServerConfig(cfg.Server))
	logger.Debug().Str("server", client.BaseURL()).Str("config", opts.configPath).Msg("client configured")
	return &app{
		cfg:      cfg,
		logger:   logger,
		catalog:  cat,
		client:   client,
		registry: registry.New(),
		gatherer: reg,
		metrics:  col,
		closeLog: closeLog,
	}, nil
}

// withLogger returns ctx carrying the app logger.
func (a *app) withLogger(ctx context.Context) context.Context {
	return logging.NewContext(ctx, a.logger)
}

func (a *app) Close() {
	if a.closeLog != nil {
		a.closeLog()
	}
}

func (a *app) newPoller(w sink.StatusWriter) *poller.Poller {
	return poller.New(a.client, poller.Options{
		Interval:  a.cfg.Poll.Interval,
		Writer:    w,
		Collector: a.metrics,
		Logger:    a.logger.With().Str("component", "poller").Logger(),
	})
}

func (a *app) newDispatcher(j *journal.Journal, t dispatch.Ticker) *dispatch.Dispatcher {
	return dispatch.New(a.client, j, a.registry, dispatch.Options{Ticker: t, Collector: a.metrics})
}

// printJournal echoes journal lines to out. Command output owns stdout,
// so the journal's own log mirror is silenced.
func printJournal(out io.Writer) *journal.Journal {
	j := journal.New(zerolog.Nop())
	j.Subscribe(func(e journal.Entry) {
		fmt.Fprintln(out, e.Format())
	})
	return j
}
