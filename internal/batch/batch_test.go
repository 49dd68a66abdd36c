package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/segregation/internal/config"
	"github.com/talgya/segregation/internal/engine"
)

func smallSweep() config.BatchConfig {
	return config.BatchConfig{
		Preset:     config.PresetComposition,
		Width:      8,
		Height:     8,
		Density:    []float64{0.4, 0.8},
		MinorityPC: []float64{0.2},
		Homophily:  []float64{0.3, 0.6},
		Iterations: 2,
		MaxSteps:   20,
		Seed:       11,
	}
}

func TestPoints(t *testing.T) {
	assert.Equal(t, []Point{
		{Density: 0.4, MinorityPC: 0.2, Homophily: 0.3},
		{Density: 0.4, MinorityPC: 0.2, Homophily: 0.6},
		{Density: 0.8, MinorityPC: 0.2, Homophily: 0.3},
		{Density: 0.8, MinorityPC: 0.2, Homophily: 0.6},
	}, Points(smallSweep()))

	empty := smallSweep()
	empty.Homophily = nil
	assert.Empty(t, Points(empty))
}

func TestModelFor(t *testing.T) {
	m, err := ModelFor(smallSweep(), Point{Density: 0.5, MinorityPC: 0.1, Homophily: 0.7})
	require.NoError(t, err)
	assert.Equal(t, 8, m.Width)
	assert.Equal(t, 0.5, m.Density)
	assert.Equal(t, 0.1, m.MinorityPC)
	assert.Equal(t, 0.7, m.Happiness.Threshold)
	assert.Equal(t, 0.7, m.Eligibility.Threshold)

	cfg := smallSweep()
	cfg.Preset = "nope"
	_, err = ModelFor(cfg, Point{})
	assert.ErrorIs(t, err, config.ErrUnknownPreset)
}

func TestRun(t *testing.T) {
	cfg := smallSweep()
	var calls []int
	results, err := Run(context.Background(), cfg, func(done, total int) {
		assert.Equal(t, 8, total)
		calls = append(calls, done)
	})
	require.NoError(t, err)
	require.Len(t, results, 8)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, calls)

	for i, r := range results {
		assert.Equal(t, i%2, r.Iteration)
		assert.LessOrEqual(t, r.Steps, uint64(cfg.MaxSteps))
		if !r.Halted {
			assert.Equal(t, uint64(cfg.MaxSteps), r.Steps)
		}
	}

	again, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, results, again, "same sweep seed gives the same results")
}

func TestRun_Errors(t *testing.T) {
	cfg := smallSweep()
	cfg.Iterations = 0
	_, err := Run(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)

	cfg = smallSweep()
	cfg.Density = []float64{1.5}
	_, err = Run(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrFraction)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := Run(ctx, smallSweep(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestSummarize(t *testing.T) {
	a := Point{Density: 0.5, MinorityPC: 0.2, Homophily: 0.3}
	b := Point{Density: 0.8, MinorityPC: 0.2, Homophily: 0.3}
	results := []Result{
		{Point: b, Steps: 10, Halted: true, Metrics: engine.Metrics{TotalSatisfaction: 1, Segregation: 0.9}},
		{Point: a, Steps: 4, Halted: true, Metrics: engine.Metrics{TotalSatisfaction: 0.5, Segregation: 0.4}},
		{Point: a, Steps: 8, Halted: false, Metrics: engine.Metrics{TotalSatisfaction: 0.7, Segregation: 0.6}},
	}

	sums := Summarize(results)
	require.Len(t, sums, 2)
	assert.Equal(t, b, sums[0].Point, "first-seen order")
	assert.Equal(t, 1, sums[0].Runs)
	assert.Zero(t, sums[0].StdSatisfaction)

	s := sums[1]
	assert.Equal(t, 2, s.Runs)
	assert.Equal(t, 6.0, s.MeanSteps)
	assert.Equal(t, 0.5, s.HaltedShare)
	assert.InDelta(t, 0.6, s.MeanSatisfaction, 1e-9)
	assert.InDelta(t, 0.1414213562, s.StdSatisfaction, 1e-9)
	assert.InDelta(t, 0.5, s.MeanSegregation, 1e-9)
}

func TestWriteCSV(t *testing.T) {
	results := []Result{{Point: Point{0.5, 0.2, 0.3}, Iteration: 1, Seed: 9, Steps: 3, Halted: true}}

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, results))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 7+len(engine.MetricNames))
	assert.Equal(t, []string{"0.5", "0.2", "0.3", "1", "9", "3", "true"}, rows[1][:7])

	buf.Reset()
	require.NoError(t, WriteSummaries(&buf, Summarize(results)))
	rows, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[1][3])
}
