package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"subsim-ctl/internal/dispatch"
	"subsim-ctl/internal/journal"
	"subsim-ctl/internal/poller"
	"subsim-ctl/internal/reconcile"
	"subsim-ctl/internal/sink"
)

// session is the wiring of a one-shot command: journal lines and the
// post-command status go to the command's stdout.
type session struct {
	*app
	out        io.Writer
	poller     *poller.Poller
	dispatcher *dispatch.Dispatcher
}

func newSession(cmd *cobra.Command, opts *globalOptions) (*session, error) {
	a, err := newApp(opts, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	p := a.newPoller(sink.NewStdoutWriter(out, a.catalog, a.registry.View))
	return &session{
		app:        a,
		out:        out,
		poller:     p,
		dispatcher: a.newDispatcher(printJournal(out), p),
	}, nil
}

// runSession wraps fn with session setup and teardown.
func runSession(opts *globalOptions, fn func(ctx context.Context, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		s, err := newSession(cmd, opts)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(s.withLogger(cmd.Context()), s)
	}
}

// selectProfile loads the server's profiles and selects id when given.
func (s *session) selectProfile(ctx context.Context, id string) error {
	if err := s.dispatcher.RefreshConfigs(ctx); err != nil {
		return err
	}
	if id == "" {
		return nil
	}
	return s.dispatcher.SelectConfig(id)
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Poll the simulator once and print the reconciled status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := a.withLogger(cmd.Context())
			// a failed profile listing still leaves the status worth showing
			d := a.newDispatcher(journal.New(a.logger), nil)
			_ = d.RefreshConfigs(ctx)
			snap, _ := a.newPoller(nil).Tick(ctx)
			v := reconcile.Render(reconcile.Input{Snapshot: snap, Catalog: a.catalog, Registry: a.registry.View()})
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(v); err != nil {
					return err
				}
			} else {
				fmt.Fprint(out, v.String())
			}
			if snap.Disconnected() {
				return fmt.Errorf("simulator unreachable: %s", snap.Err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the reconciled view as JSON")
	return cmd
}

func newStartCmd(opts *globalOptions) *cobra.Command {
	var (
		interval int
		configID string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the simulated feed with a stored MQTT profile",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = runSession(opts, func(ctx context.Context, s *session) error {
		if configID != "" {
			if err := s.selectProfile(ctx, configID); err != nil {
				return err
			}
		}
		if !cmd.Flags().Changed("interval") {
			interval = s.cfg.Start.Interval
		}
		return s.dispatcher.Start(ctx, interval)
	})
	cmd.Flags().IntVar(&interval, "interval", 0, "Publish interval in seconds (default start.interval)")
	cmd.Flags().StringVar(&configID, "config-id", "", "Id of the MQTT profile to publish with")
	return cmd
}

func newStopCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the simulated feed",
		Args:  cobra.NoArgs,
		RunE: runSession(opts, func(ctx context.Context, s *session) error {
			return s.dispatcher.Stop(ctx)
		}),
	}
}

func newTriggerCmd(opts *globalOptions) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "trigger <TARGET_event>",
		Short: "Toggle a fault event, e.g. BATTERY_input_voltage_low",
		Args:  cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			key = args[0]
		},
	}
	cmd.RunE = runSession(opts, func(ctx context.Context, s *session) error {
		return s.dispatcher.Trigger(ctx, key)
	})
	return cmd
}

func newClearCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear every active event",
		Args:  cobra.NoArgs,
		RunE: runSession(opts, func(ctx context.Context, s *session) error {
			return s.dispatcher.ClearAll(ctx)
		}),
	}
}

func newPublishCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Ask the simulator to publish a reading immediately",
		Args:  cobra.NoArgs,
		RunE: runSession(opts, func(ctx context.Context, s *session) error {
			return s.dispatcher.RequestPublish(ctx)
		}),
	}
}
