package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"subsim-ctl/internal/dispatch"
	"subsim-ctl/internal/registry"
	"subsim-ctl/internal/simclient"
)

func newConfigsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "Manage the simulator's MQTT publishing profiles",
	}
	cmd.AddCommand(
		newConfigsListCmd(opts),
		newConfigsSaveCmd(opts),
		newConfigsDeleteCmd(opts),
		newConfigsSelectCmd(opts),
	)
	return cmd
}

func newConfigsListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored profiles",
		Args:  cobra.NoArgs,
		RunE: runSession(opts, func(ctx context.Context, s *session) error {
			if err := s.dispatcher.RefreshConfigs(ctx); err != nil {
				return err
			}
			fmt.Fprintln(s.out, profileTable(s.registry.View()))
			return nil
		}),
	}
}

func profileTable(v registry.View) *table.Table {
	rows := make([][]string, 0, len(v.Profiles))
	for _, p := range v.Profiles {
		rows = append(rows, []string{p.ID, p.Note, p.Broker, p.Port, p.Topic, p.Username})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NOTE", "BROKER", "PORT", "TOPIC", "USERNAME").
		Rows(rows...)
}

func newConfigsSaveCmd(opts *globalOptions) *cobra.Command {
	var in simclient.ProfileInput
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Store a new profile",
		Args:  cobra.NoArgs,
		RunE: runSession(opts, func(ctx context.Context, s *session) error {
			_, err := s.dispatcher.SaveConfig(ctx, in)
			return err
		}),
	}
	cmd.Flags().StringVar(&in.Note, "note", "", "Profile name")
	cmd.Flags().StringVar(&in.Broker, "broker", "", "MQTT broker host")
	cmd.Flags().StringVar(&in.Port, "port", "1883", "MQTT broker port")
	cmd.Flags().StringVar(&in.Topic, "topic", "", "MQTT topic")
	cmd.Flags().StringVar(&in.Username, "username", "", "MQTT username")
	return cmd
}

func newConfigsDeleteCmd(opts *globalOptions) *cobra.Command {
	var (
		id  string
		yes bool
	)
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored profile",
		Args:  cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			id = args[0]
		},
	}
	cmd.RunE = runSession(opts, func(ctx context.Context, s *session) error {
		if err := s.selectProfile(ctx, id); err != nil {
			return err
		}
		var c dispatch.Confirmer = promptConfirmer(cmd.InOrStdin(), s.out)
		if yes {
			c = dispatch.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
		}
		err := s.dispatcher.DeleteConfig(ctx, c)
		if errors.Is(err, dispatch.ErrDeclined) {
			fmt.Fprintln(s.out, "Aborted.")
			return nil
		}
		return err
	})
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// promptConfirmer asks on out and reads the answer from in.
func promptConfirmer(in io.Reader, out io.Writer) dispatch.Confirmer {
	return dispatch.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	})
}

func newConfigsSelectCmd(opts *globalOptions) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "select <id>",
		Short: "Check that a profile exists and show it",
		Long:  "select resolves a profile id against the server. Selection only lasts for one invocation; pass --config-id to start or watch to use it.",
		Args:  cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			id = args[0]
		},
	}
	cmd.RunE = runSession(opts, func(ctx context.Context, s *session) error {
		if err := s.selectProfile(ctx, id); err != nil {
			return err
		}
		v := s.registry.View()
		p, _ := v.Lookup(v.Selected)
		fmt.Fprintln(s.out, profileTable(registry.View{Profiles: []simclient.ConfigProfile{p}}))
		return nil
	})
	return cmd
}
