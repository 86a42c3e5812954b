package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"subsim-ctl/internal/sink"
)

func newReplayCmd(opts *globalOptions) *cobra.Command {
	var (
		speed  float64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Replay a recorded status history",
		Long:  "replay feeds snapshots from a JSONL recording back through the status renderer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var w sink.StatusWriter = sink.NewStdoutWriter(out, a.catalog, nil)
			if asJSON {
				w = sink.NewJSONStdoutWriter(out)
			}
			n, err := sink.ReplayLogFile(ctx, args[0], w, speed)
			a.logger.Info().Int("snapshots", n).Str("file", args[0]).Msg("replay finished")
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 1.0, "Playback speed multiplier (0 replays without pauses)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print snapshots as JSON lines")
	return cmd
}
