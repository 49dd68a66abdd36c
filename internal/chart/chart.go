// Package chart renders per-step metric series as PNG line charts.
package chart

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/talgya/segregation/internal/engine"
)

// ErrTooFewSteps is returned for series shorter than two records.
var ErrTooFewSteps = errors.New("chart: need at least two steps")

// Chart size in pixels.
const (
	Width  = 800
	Height = 360
)

var (
	colorTotal    = drawing.Color{R: 80, G: 80, B: 80, A: 255}
	colorMajority = chart.ColorBlue
	colorMinority = chart.ColorRed
	colorHappy    = drawing.Color{R: 46, G: 139, B: 87, A: 255}
)

// Satisfaction renders the total, majority, and minority satisfaction
// indices against the step number.
func Satisfaction(records []engine.Record, w io.Writer) error {
	if len(records) < 2 {
		return ErrTooFewSteps
	}
	steps, cols := columns(records)
	return render(w, "satisfaction index", &chart.ContinuousRange{Min: 0, Max: 1}, []chart.Series{
		line("total", steps, cols.total, colorTotal),
		line("majority", steps, cols.majority, colorMajority),
		line("minority", steps, cols.minority, colorMinority),
	})
}

// Happy renders the number of happy agents per step.
func Happy(records []engine.Record, w io.Writer) error {
	if len(records) < 2 {
		return ErrTooFewSteps
	}
	steps, cols := columns(records)
	top := 1.0
	for _, v := range cols.happy {
		top = max(top, v)
	}
	return render(w, "happy agents", &chart.ContinuousRange{Min: 0, Max: top}, []chart.Series{
		line("happy", steps, cols.happy, colorHappy),
	})
}

type series struct {
	total, majority, minority, happy []float64
}

func columns(records []engine.Record) ([]float64, series) {
	steps := make([]float64, len(records))
	var s series
	for i, r := range records {
		steps[i] = float64(r.Step)
		s.total = append(s.total, r.TotalSatisfaction)
		s.majority = append(s.majority, r.MajoritySatisfaction)
		s.minority = append(s.minority, r.MinoritySatisfaction)
		s.happy = append(s.happy, float64(r.Happy))
	}
	return steps, s
}

func line(name string, x, y []float64, c drawing.Color) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		Name:    name,
		XValues: x,
		YValues: y,
		Style:   chart.Style{StrokeColor: c, StrokeWidth: 2.0},
	}
}

func render(w io.Writer, yName string, yRange *chart.ContinuousRange, s []chart.Series) error {
	graph := chart.Chart{
		Width:  Width,
		Height: Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "step",
			Style: chart.Style{FontSize: 10.0},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  yName,
			Style: chart.Style{FontSize: 10.0},
			Range: yRange,
		},
		Series: s,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", yName, err)
	}
	return nil
}
