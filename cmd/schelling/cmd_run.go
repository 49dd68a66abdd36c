package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/segregation/internal/chart"
	"github.com/talgya/segregation/internal/collector"
	"github.com/talgya/segregation/internal/config"
	"github.com/talgya/segregation/internal/engine"
	"github.com/talgya/segregation/internal/entropy"
	"github.com/talgya/segregation/internal/persistence"
	"github.com/talgya/segregation/internal/world"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the model once until it halts or reaches the step limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("steps") {
				cfg.Run.MaxSteps, _ = cmd.Flags().GetInt("steps")
			}
			if cmd.Flags().Changed("snapshot-every") {
				cfg.Run.SnapshotEvery, _ = cmd.Flags().GetInt("snapshot-every")
			}
			if err := applyModelFlags(cmd, cfg); err != nil {
				return err
			}
			csvPath, _ := cmd.Flags().GetString("csv")
			chartPath, _ := cmd.Flags().GetString("chart")

			ctx, stop := signalContext()
			defer stop()

			db, err := openStore(cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			var resume *resumePoint
			if resumeID, _ := cmd.Flags().GetString("resume"); resumeID != "" {
				if db == nil {
					return errors.New("--resume needs a database: pass --db or set storage.db_path")
				}
				var fromStep *uint64
				if cmd.Flags().Changed("from-step") {
					n, _ := cmd.Flags().GetUint64("from-step")
					fromStep = &n
				}
				if resume, err = loadResumePoint(db, resumeID, fromStep); err != nil {
					return err
				}
				cfg.Model = resume.params
				if !cmd.Flags().Changed("seed") {
					cfg.Run.Seed = resume.seed
				}
			}

			seed := entropy.Resolve(cfg.Run.Seed)
			series := collector.NewSeries()
			sinks := collector.Multi{series}

			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return fmt.Errorf("create csv: %w", err)
				}
				defer f.Close()
				sinks = append(sinks, collector.NewCSVWriter(f))
			}

			var runID string
			if db != nil {
				if runID, err = db.CreateRun(cfg.Model, seed); err != nil {
					return err
				}
				sinks = append(sinks, db.Recorder(runID))
			}

			var m *engine.Model
			if resume != nil {
				m, err = engine.FromGrid(cfg.Model, seed, resume.grid, engine.WithSink(sinks))
			} else {
				m, err = engine.New(cfg.Model, seed, engine.WithSink(sinks))
			}
			if err != nil {
				return err
			}
			if resume != nil {
				slog.Info("resumed from snapshot", "from_run", resume.runID, "from_step", resume.step)
			}
			slog.Info("run started",
				"preset", cfg.Model.Preset,
				"seed", m.Seed,
				"run_id", runID,
				"agents", m.Schedule.Count(),
				"max_steps", cfg.Run.MaxSteps,
			)

			for m.Running && (cfg.Run.MaxSteps == 0 || m.Steps() < uint64(cfg.Run.MaxSteps)) {
				if ctx.Err() != nil {
					slog.Warn("run interrupted", "step", m.Steps())
					break
				}
				if _, err := m.Step(); err != nil {
					return err
				}
				if db != nil && cfg.Run.SnapshotEvery > 0 && m.Steps()%uint64(cfg.Run.SnapshotEvery) == 0 {
					if err := db.SaveSnapshot(runID, m.Steps(), m.Grid); err != nil {
						return err
					}
				}
			}

			if db != nil {
				if err := db.SaveSnapshot(runID, m.Steps(), m.Grid); err != nil {
					return err
				}
				if err := db.FinishRun(runID, m.Steps(), !m.Running); err != nil {
					return err
				}
			}
			if chartPath != "" {
				if err := writeCharts(chartPath, series.Records()); err != nil {
					return err
				}
			}

			printRunSummary(cmd.OutOrStdout(), m, runID)
			return nil
		},
	}

	cmd.Flags().String("preset", "", "Model preset (classic, fraction, composition, socioeconomic, runlength)")
	cmd.Flags().Uint64("seed", 0, "Random seed (0 draws one)")
	cmd.Flags().Int("steps", 0, "Maximum steps (0 runs until the model halts)")
	cmd.Flags().Int("snapshot-every", 0, "Store a grid snapshot every N steps")
	cmd.Flags().String("csv", "", "Write per-step metrics to this CSV file")
	cmd.Flags().String("db", "", "Record the run in this SQLite database")
	cmd.Flags().String("chart", "", "Write satisfaction and happy charts; path of the satisfaction PNG")
	cmd.Flags().String("resume", "", "Continue a stored run from its latest snapshot as a new run; its settings replace --preset")
	cmd.Flags().Uint64("from-step", 0, "With --resume, start from the snapshot of this step instead of the latest")
	return cmd
}

// resumePoint is a stored grid and the settings needed to continue it.
type resumePoint struct {
	runID  string
	step   uint64
	params config.ModelConfig
	seed   uint64
	grid   *world.Grid
}

// loadResumePoint reads a stored run and one of its snapshots, the latest
// when fromStep is nil. The continuation seed is derived from the stored
// seed and the snapshot step, so resuming twice from the same point
// replays the same steps.
func loadResumePoint(db *persistence.DB, runID string, fromStep *uint64) (*resumePoint, error) {
	run, err := db.GetRun(runID)
	if err != nil {
		return nil, err
	}
	params, err := run.Params()
	if err != nil {
		return nil, fmt.Errorf("run %s params: %w", runID, err)
	}
	stored, err := strconv.ParseUint(run.Seed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("run %s seed: %w", runID, err)
	}

	p := &resumePoint{runID: runID, params: params}
	if fromStep != nil {
		p.step = *fromStep
		p.grid, err = db.LoadSnapshot(runID, p.step)
	} else {
		p.grid, p.step, err = db.LatestSnapshot(runID)
	}
	if err != nil {
		return nil, err
	}
	p.seed = entropy.Derive(stored, int(p.step))
	if p.seed == 0 {
		p.seed = 1
	}
	return p, nil
}

// writeCharts writes the satisfaction chart to path and the happy chart
// next to it with a "-happy" suffix.
func writeCharts(path string, records []engine.Record) error {
	if len(records) < 2 {
		slog.Warn("no steps to chart", "records", len(records))
		return nil
	}
	ext := filepath.Ext(path)
	happyPath := strings.TrimSuffix(path, ext) + "-happy" + ext

	render := func(p string, draw func([]engine.Record, io.Writer) error) error {
		f, err := os.Create(p)
		if err != nil {
			return err
		}
		if err := draw(records, f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	if err := render(path, chart.Satisfaction); err != nil {
		return err
	}
	if err := render(happyPath, chart.Happy); err != nil {
		return err
	}
	slog.Info("charts written", "satisfaction", path, "happy", happyPath)
	return nil
}

func printRunSummary(w io.Writer, m *engine.Model, runID string) {
	state := "stopped at step limit"
	if !m.Running {
		state = "halted (" + m.Policies().Termination.String() + ")"
	}
	fmt.Fprintf(w, "seed        %d\n", m.Seed)
	if runID != "" {
		fmt.Fprintf(w, "run         %s\n", runID)
	}
	fmt.Fprintf(w, "steps       %s, %s\n", humanize.Comma(int64(m.Steps())), state)
	fmt.Fprintf(w, "agents      %s (%s majority, %s minority)\n",
		humanize.Comma(int64(m.Schedule.Count())),
		humanize.Comma(int64(m.Census[0])),
		humanize.Comma(int64(m.Census[1])))
	fmt.Fprintf(w, "happy       %s\n", humanize.Comma(int64(m.Metrics.Happy)))
	fmt.Fprintf(w, "satisfaction %.3f total, %.3f majority, %.3f minority\n",
		m.Metrics.TotalSatisfaction, m.Metrics.MajoritySatisfaction, m.Metrics.MinoritySatisfaction)
	fmt.Fprintf(w, "segregation %.3f\n", m.Metrics.Segregation)
}
