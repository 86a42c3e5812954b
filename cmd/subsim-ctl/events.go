package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newEventsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the event catalog and the trigger keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("KEY", "TARGET", "GROUP", "EVENT")
			for _, target := range a.catalog.Targets() {
				for _, g := range target.Groups {
					for _, d := range g.Events {
						t.Row(d.Key().String(), target.Label, g.Name, d.Label)
					}
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}
}
