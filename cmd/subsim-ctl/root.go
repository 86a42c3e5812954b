package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	server     string
	logLevel   string
	// configSet is true when --config was given explicitly; a missing
	// default file then falls back to built-in defaults.
	configSet bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "subsim-ctl",
		Short:         "Control client for the substation fault simulator",
		Long:          "subsim-ctl watches the simulator status, triggers and clears fault events and manages MQTT publishing profiles.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.configSet = cmd.Flags().Changed("config")
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "subsim.yaml", "Path to client configuration YAML")
	cmd.PersistentFlags().StringVar(&opts.server, "server", "", "Simulator base URL (overrides server.base_url)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newWatchCmd(opts),
		newStatusCmd(opts),
		newStartCmd(opts),
		newStopCmd(opts),
		newTriggerCmd(opts),
		newClearCmd(opts),
		newPublishCmd(opts),
		newConfigsCmd(opts),
		newEventsCmd(opts),
		newReplayCmd(opts),
		newDashboardCmd(opts),
	)
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
