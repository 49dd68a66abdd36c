// Package batch runs parameter sweeps: every combination of density,
// minority share, and homophily, repeated for a number of iterations, each
// run capped at a step limit. Runs execute one after another.
package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/segregation/internal/config"
	"github.com/talgya/segregation/internal/engine"
	"github.com/talgya/segregation/internal/entropy"
)

// Point is one parameter combination of a sweep.
type Point struct {
	Density    float64 `json:"density"`
	MinorityPC float64 `json:"minority_pc"`
	Homophily  float64 `json:"homophily"`
}

// Result is the final state of one run.
type Result struct {
	Point
	Iteration int    `json:"iteration"`
	Seed      uint64 `json:"seed"`
	Steps     uint64 `json:"steps"`
	Halted    bool   `json:"halted"` // Stopped by its termination policy rather than the step cap
	engine.Metrics
}

// Progress is called after each completed run.
type Progress func(done, total int)

// Points expands the sweep lists into their cartesian product, density
// outermost and homophily innermost.
func Points(cfg config.BatchConfig) []Point {
	out := make([]Point, 0, len(cfg.Density)*len(cfg.MinorityPC)*len(cfg.Homophily))
	for _, d := range cfg.Density {
		for _, p := range cfg.MinorityPC {
			for _, h := range cfg.Homophily {
				out = append(out, Point{Density: d, MinorityPC: p, Homophily: h})
			}
		}
	}
	return out
}

// ModelFor returns the model configuration of one sweep point.
func ModelFor(cfg config.BatchConfig, p Point) (config.ModelConfig, error) {
	m, err := config.Preset(cfg.Preset)
	if err != nil {
		return m, err
	}
	if cfg.Width > 0 {
		m.Width = cfg.Width
	}
	if cfg.Height > 0 {
		m.Height = cfg.Height
	}
	m.Density = p.Density
	m.MinorityPC = p.MinorityPC
	m.SetHomophily(p.Homophily)
	return m, nil
}

// Run executes the whole sweep. Each run gets a seed derived from the
// sweep seed and its index, so a sweep is reproducible from cfg.Seed.
// Cancelling ctx stops between runs and returns the results so far.
func Run(ctx context.Context, cfg config.BatchConfig, progress Progress) ([]Result, error) {
	if cfg.Iterations <= 0 {
		return nil, fmt.Errorf("%w: iterations must be positive", config.ErrInvalid)
	}
	points := Points(cfg)
	total := len(points) * cfg.Iterations
	base := entropy.Resolve(cfg.Seed)

	slog.Info("batch started",
		"preset", cfg.Preset,
		"points", len(points),
		"iterations", cfg.Iterations,
		"max_steps", cfg.MaxSteps,
		"seed", base,
	)

	results := make([]Result, 0, total)
	index := 0
	for _, p := range points {
		mc, err := ModelFor(cfg, p)
		if err != nil {
			return results, err
		}
		if err := mc.Validate(); err != nil {
			return results, fmt.Errorf("point %+v: %w", p, err)
		}

		for it := 0; it < cfg.Iterations; it++ {
			if err := ctx.Err(); err != nil {
				return results, err
			}

			seed := entropy.Derive(base, index)
			index++

			m, err := engine.New(mc, seed)
			if err != nil {
				return results, fmt.Errorf("point %+v iteration %d: %w", p, it, err)
			}
			if err := m.Run(cfg.MaxSteps); err != nil {
				return results, fmt.Errorf("point %+v iteration %d: %w", p, it, err)
			}

			results = append(results, Result{
				Point:     p,
				Iteration: it,
				Seed:      seed,
				Steps:     m.Steps(),
				Halted:    !m.Running,
				Metrics:   m.Metrics,
			})
			if progress != nil {
				progress(len(results), total)
			}
		}
	}

	slog.Info("batch complete", "runs", len(results))
	return results, nil
}
