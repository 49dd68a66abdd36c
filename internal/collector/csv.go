package collector

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/talgya/segregation/internal/engine"
)

// CSVWriter writes one row per record, preceded by a header row.
type CSVWriter struct {
	w      *csv.Writer
	header bool
}

// NewCSVWriter wraps w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Collect implements engine.Sink. Each row is flushed immediately so a
// partially finished run still leaves a readable file.
func (c *CSVWriter) Collect(r engine.Record) error {
	if !c.header {
		if err := c.w.Write(append([]string{"step"}, engine.MetricNames...)); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		c.header = true
	}
	row := make([]string, 0, len(engine.MetricNames)+1)
	row = append(row, strconv.FormatUint(r.Step, 10))
	for _, v := range r.Values() {
		row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("write csv row %d: %w", r.Step, err)
	}
	c.w.Flush()
	return c.w.Error()
}
