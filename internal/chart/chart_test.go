package chart

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/segregation/internal/engine"
)

func sampleRecords(n int) []engine.Record {
	out := make([]engine.Record, n)
	for i := range out {
		f := float64(i) / float64(n)
		out[i] = engine.Record{
			Step: uint64(i),
			Metrics: engine.Metrics{
				Happy:                10 + i,
				TotalSatisfaction:    f,
				MajoritySatisfaction: f,
				MinoritySatisfaction: f / 2,
			},
		}
	}
	return out
}

func TestSatisfaction_RendersPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Satisfaction(sampleRecords(10), &buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())
}

func TestHappy_FlatSeries(t *testing.T) {
	records := sampleRecords(5)
	for i := range records {
		records[i].Happy = 0
	}
	var buf bytes.Buffer
	require.NoError(t, Happy(records, &buf))
	assert.NotZero(t, buf.Len())
}

func TestTooFewSteps(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Satisfaction(sampleRecords(1), &buf), ErrTooFewSteps)
	assert.ErrorIs(t, Happy(nil, &buf), ErrTooFewSteps)
}
