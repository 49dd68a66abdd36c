package collector

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/segregation/internal/engine"
)

func record(step uint64, happy int, seg float64) engine.Record {
	return engine.Record{Step: step, Metrics: engine.Metrics{Happy: happy, Segregation: seg}}
}

func TestSeries(t *testing.T) {
	s := NewSeries()
	assert.Zero(t, s.Len())

	require.NoError(t, s.Collect(record(0, 3, 0.25)))
	require.NoError(t, s.Collect(record(1, 5, 0.5)))

	assert.Equal(t, 2, s.Len())
	recs := s.Records()
	assert.Equal(t, 5, recs[1].Happy)
	assert.Equal(t, 0.25, recs[0].Segregation)

	recs[0].Step = 99
	assert.Equal(t, uint64(0), s.Records()[0].Step, "Records returns a copy")

	s.Reset()
	assert.Zero(t, s.Len())
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	require.NoError(t, w.Collect(record(0, 1, 0.5)))
	require.NoError(t, w.Collect(record(1, 2, 0.75)))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, append([]string{"step"}, engine.MetricNames...), rows[0])
	assert.Equal(t, "1", rows[2][0])
	assert.Equal(t, "2", rows[2][1])
	assert.Equal(t, "0.75", rows[2][7])
}

type failing struct{ err error }

func (f failing) Collect(engine.Record) error { return f.err }

func TestMulti(t *testing.T) {
	a, b := NewSeries(), NewSeries()
	require.NoError(t, Multi{a, b}.Collect(record(0, 1, 0)))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())

	boom := errors.New("boom")
	c := NewSeries()
	err := Multi{a, failing{boom}, c}.Collect(record(1, 1, 0))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, a.Len())
	assert.Zero(t, c.Len(), "fan-out stops at the first error")
}
