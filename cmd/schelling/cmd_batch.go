package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/segregation/internal/batch"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Sweep density, minority share, and homophily over repeated runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			bc := cfg.Batch
			if cmd.Flags().Changed("preset") {
				bc.Preset, _ = cmd.Flags().GetString("preset")
			}
			if cmd.Flags().Changed("iterations") {
				bc.Iterations, _ = cmd.Flags().GetInt("iterations")
			}
			if cmd.Flags().Changed("steps") {
				bc.MaxSteps, _ = cmd.Flags().GetInt("steps")
			}
			if cmd.Flags().Changed("seed") {
				bc.Seed, _ = cmd.Flags().GetUint64("seed")
			}
			out, _ := cmd.Flags().GetString("out")
			summaryPath, _ := cmd.Flags().GetString("summary")

			ctx, stop := signalContext()
			defer stop()

			total := len(batch.Points(bc)) * bc.Iterations
			step := max(total/10, 1)
			results, err := batch.Run(ctx, bc, func(done, total int) {
				if done%step == 0 || done == total {
					slog.Info("batch progress", "done", done, "total", total)
				}
			})
			if err != nil && len(results) == 0 {
				return err
			}
			if err != nil {
				slog.Warn("batch stopped early; writing partial results", "error", err, "runs", len(results))
			}

			if err := writeFile(out, func(f *os.File) error { return batch.WriteResults(f, results) }); err != nil {
				return err
			}
			summaries := batch.Summarize(results)
			if summaryPath != "" {
				if err := writeFile(summaryPath, func(f *os.File) error { return batch.WriteSummaries(f, summaries) }); err != nil {
					return err
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "density\tminority\thomophily\truns\tsteps\tsatisfaction\tsegregation")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%.2f\t%.2f\t%.2f\t%d\t%.1f\t%.3f±%.3f\t%.3f±%.3f\n",
					s.Density, s.MinorityPC, s.Homophily, s.Runs, s.MeanSteps,
					s.MeanSatisfaction, s.StdSatisfaction, s.MeanSegregation, s.StdSegregation)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().String("preset", "", "Model preset for every run")
	cmd.Flags().Int("iterations", 0, "Runs per parameter combination")
	cmd.Flags().Int("steps", 0, "Maximum steps per run")
	cmd.Flags().Uint64("seed", 0, "Sweep seed (0 draws one)")
	cmd.Flags().String("out", "batch.csv", "CSV file of per-run results")
	cmd.Flags().String("summary", "", "CSV file of per-combination summaries")
	return cmd
}

// writeFile creates path, fills it with write, and logs its size.
func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if info, err := os.Stat(path); err == nil {
		slog.Info("file written", "path", path, "size", humanize.Bytes(uint64(info.Size())))
	}
	return nil
}
