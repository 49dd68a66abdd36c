package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/segregation/internal/collector"
	"github.com/talgya/segregation/internal/persistence"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs stored in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storeFromFlags(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := db.ListRuns(limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPRESET\tSEED\tSTEPS\tHALTED\tSTARTED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\t%s\n",
					r.ID, r.Preset, r.Seed, humanize.Comma(r.Steps), r.Halted, started(r))
			}
			return tw.Flush()
		},
	}
	cmd.PersistentFlags().String("db", "", "SQLite database")
	cmd.Flags().Int("limit", 20, "Maximum runs to list")
	cmd.AddCommand(newRunsExportCmd())
	return cmd
}

func newRunsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a stored run's metrics as CSV and optionally as charts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storeFromFlags(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := db.GetRun(args[0]); err != nil {
				return err
			}
			records, err := db.StepRecords(args[0])
			if err != nil {
				return err
			}

			csvPath, _ := cmd.Flags().GetString("csv")
			out := cmd.OutOrStdout()
			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			w := collector.NewCSVWriter(out)
			for _, r := range records {
				if err := w.Collect(r); err != nil {
					return err
				}
			}

			if chartPath, _ := cmd.Flags().GetString("chart"); chartPath != "" {
				return writeCharts(chartPath, records)
			}
			return nil
		},
	}
	cmd.Flags().String("csv", "", "Write CSV to this file instead of stdout")
	cmd.Flags().String("chart", "", "Write satisfaction and happy charts; path of the satisfaction PNG")
	return cmd
}

// storeFromFlags opens the database named by --db or the configuration.
func storeFromFlags(cmd *cobra.Command) (*persistence.DB, error) {
	cfg, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("db") {
		cfg.Storage.DBPath, _ = cmd.Flags().GetString("db")
	}
	if cfg.Storage.DBPath == "" {
		return nil, errors.New("no database: pass --db or set storage.db_path")
	}
	return persistence.Open(cfg.Storage.DBPath)
}

func started(r persistence.Run) string {
	t, err := time.Parse(time.RFC3339Nano, r.StartedAt)
	if err != nil {
		return r.StartedAt
	}
	return humanize.Time(t)
}
