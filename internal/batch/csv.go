package batch

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/talgya/segregation/internal/engine"
)

// WriteResults writes one CSV row per run.
func WriteResults(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	header := append([]string{"density", "minority_pc", "homophily", "iteration", "seed", "steps", "halted"}, engine.MetricNames...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			fmtFloat(r.Density),
			fmtFloat(r.MinorityPC),
			fmtFloat(r.Homophily),
			strconv.Itoa(r.Iteration),
			strconv.FormatUint(r.Seed, 10),
			strconv.FormatUint(r.Steps, 10),
			strconv.FormatBool(r.Halted),
		}
		for _, v := range r.Metrics.Values() {
			row = append(row, fmtFloat(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaries writes one CSV row per sweep point.
func WriteSummaries(w io.Writer, summaries []Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"density", "minority_pc", "homophily", "runs", "mean_steps", "halted_share",
		"mean_satisfaction", "std_satisfaction", "mean_segregation", "std_segregation",
	}); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := cw.Write([]string{
			fmtFloat(s.Density),
			fmtFloat(s.MinorityPC),
			fmtFloat(s.Homophily),
			strconv.Itoa(s.Runs),
			fmtFloat(s.MeanSteps),
			fmtFloat(s.HaltedShare),
			fmtFloat(s.MeanSatisfaction),
			fmtFloat(s.StdSatisfaction),
			fmtFloat(s.MeanSegregation),
			fmtFloat(s.StdSegregation),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
