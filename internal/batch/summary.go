package batch

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the runs of one sweep point.
type Summary struct {
	Point
	Runs int `json:"runs"`

	MeanSteps        float64 `json:"mean_steps"`
	HaltedShare      float64 `json:"halted_share"`
	MeanSatisfaction float64 `json:"mean_satisfaction"`
	StdSatisfaction  float64 `json:"std_satisfaction"`
	MeanSegregation  float64 `json:"mean_segregation"`
	StdSegregation   float64 `json:"std_segregation"`
}

// Summarize groups results by point, in first-seen order.
func Summarize(results []Result) []Summary {
	type group struct {
		steps, halted, satisfaction, segregation []float64
	}
	var order []Point
	groups := make(map[Point]*group)
	for _, r := range results {
		g, ok := groups[r.Point]
		if !ok {
			g = &group{}
			groups[r.Point] = g
			order = append(order, r.Point)
		}
		halted := 0.0
		if r.Halted {
			halted = 1
		}
		g.steps = append(g.steps, float64(r.Steps))
		g.halted = append(g.halted, halted)
		g.satisfaction = append(g.satisfaction, r.TotalSatisfaction)
		g.segregation = append(g.segregation, r.Segregation)
	}

	out := make([]Summary, 0, len(order))
	for _, p := range order {
		g := groups[p]
		n := float64(len(g.steps))
		s := Summary{
			Point:       p,
			Runs:        len(g.steps),
			MeanSteps:   stat.Mean(g.steps, nil),
			HaltedShare: floats.Sum(g.halted) / n,
		}
		s.MeanSatisfaction, s.StdSatisfaction = meanStd(g.satisfaction)
		s.MeanSegregation, s.StdSegregation = meanStd(g.segregation)
		out = append(out, s)
	}
	return out
}

// meanStd is stat.MeanStdDev with the deviation of a single sample
// reported as 0.
func meanStd(x []float64) (float64, float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	return stat.MeanStdDev(x, nil)
}
