package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"subsim-ctl/internal/admin"
	"subsim-ctl/internal/journal"
	"subsim-ctl/internal/poller"
	"subsim-ctl/internal/sink"
	"subsim-ctl/internal/tui"
)

// isTerminal reports whether stdout is an interactive terminal.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

type watchOptions struct {
	asJSON    bool
	record    string
	adminAddr string
	configID  string
	interval  int
}

func newWatchCmd(opts *globalOptions) *cobra.Command {
	wo := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the simulator status",
		Long:  "watch opens the interactive dashboard. When stdout is not a terminal, or with --json, status changes are printed instead.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			interactive := !wo.asJSON && isTerminal()
			return runWatch(ctx, cmd, opts, wo, interactive)
		},
	}
	cmd.Flags().BoolVar(&wo.asJSON, "json", false, "Print applied snapshots as JSON lines")
	cmd.Flags().StringVar(&wo.record, "record", "", "Record applied snapshots to a JSONL file (overrides history.file)")
	cmd.Flags().StringVar(&wo.adminAddr, "admin-addr", "", "Serve the admin API and metrics on this address (overrides admin.addr)")
	cmd.Flags().StringVar(&wo.configID, "config-id", "", "Preselect this MQTT profile")
	cmd.Flags().IntVar(&wo.interval, "interval", 0, "Initial publish interval in seconds (default start.interval)")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, opts *globalOptions, wo *watchOptions, interactive bool) error {
	// the dashboard owns the terminal; logs go to logging.file or nowhere
	var logOut io.Writer = cmd.ErrOrStderr()
	if interactive {
		logOut = io.Discard
	}
	a, err := newApp(opts, logOut)
	if err != nil {
		return err
	}
	defer a.Close()
	if wo.record != "" {
		a.cfg.History.File = wo.record
	}
	if wo.adminAddr != "" {
		a.cfg.Admin.Addr = wo.adminAddr
	}
	if wo.interval <= 0 {
		wo.interval = a.cfg.Start.Interval
	}

	ctx, cancel := context.WithCancel(a.withLogger(ctx))
	defer cancel()

	history, err := historyWriters(a.cfg, a.client.BaseURL(), a.logger)
	if err != nil {
		return err
	}
	// recorders run behind a queue so a slow GreptimeDB never stalls the
	// poller or the display
	var recorder *sink.AsyncWriter
	if history.Len() > 0 {
		recorder = sink.NewAsyncWriter(history, sink.DefaultQueueSize, a.logger.With().Str("component", "history").Logger())
		defer recorder.Close()
	} else {
		defer history.Close()
	}

	// the display comes first, then the recorders
	writers := sink.NewMultiWriter()
	j := journal.New(a.logger.With().Str("component", "journal").Logger())
	p := a.newPoller(writers)
	d := a.newDispatcher(j, p)

	var adminReady func(string)
	if interactive {
		tw := tui.NewWriter(ctx, tui.Options{Commands: d, Catalog: a.catalog, Interval: wo.interval})
		defer tw.Close()
		writers.Add(tw)
		j.Subscribe(tw.Log)
		a.registry.Subscribe(tw.SetRegistry)
		adminReady = tw.SetAdminStatus
		go func() {
			select {
			case <-tw.Done():
				cancel()
			case <-ctx.Done():
			}
		}()
	} else {
		writers.Add(displayWriter(cmd.OutOrStdout(), wo.asJSON, a.catalog, a.registry.View))
	}

	if recorder != nil {
		writers.Add(recorder)
	}

	if a.cfg.Admin.Addr != "" {
		startAdmin(ctx, a, p, j, adminReady)
	}

	_ = d.RefreshConfigs(ctx)
	if wo.configID != "" {
		_ = d.SelectConfig(wo.configID)
	}

	if err := p.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func startAdmin(ctx context.Context, a *app, p *poller.Poller, j *journal.Journal, ready func(string)) {
	srv := admin.NewServer(admin.Options{
		Server:   a.client.BaseURL(),
		Catalog:  a.catalog,
		Snapshot: p,
		Registry: a.registry,
		Journal:  j,
		Gatherer: a.gatherer,
		Logger:   a.logger.With().Str("component", "admin").Logger(),
	})
	go func() {
		if err := srv.Start(ctx, a.cfg.Admin.Addr, ready); err != nil {
			a.logger.Error().Err(err).Str("addr", a.cfg.Admin.Addr).Msg("admin server failed")
		}
	}()
}
