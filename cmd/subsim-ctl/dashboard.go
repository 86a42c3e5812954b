package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subsim-ctl/internal/dashboard"
)

func newDashboardCmd(opts *globalOptions) *cobra.Command {
	var (
		outDir string
		tbl    string
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Render Grafana dashboards for the GreptimeDB status history",
		Long:  "dashboard renders the bundled Grafana dashboards. GREPTIMEDB_DATASOURCE_UID must name the Grafana data source.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if tbl == "" {
				tbl = a.cfg.History.Greptime.Table
			}
			files, err := dashboard.Render(outDir, dashboard.Params{Table: tbl})
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "dashboards", "Output directory")
	cmd.Flags().StringVar(&tbl, "table", "", "History table name (default history.greptime.table)")
	return cmd
}
