package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/segregation/internal/config"
	"github.com/talgya/segregation/internal/engine"
	"github.com/talgya/segregation/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRuns(t *testing.T) {
	db := openTestDB(t)
	m, err := config.Preset(config.PresetRunLength)
	require.NoError(t, err)

	first, err := db.CreateRun(m, 1)
	require.NoError(t, err)
	second, err := db.CreateRun(m, 18446744073709551615)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	r, err := db.GetRun(second)
	require.NoError(t, err)
	assert.Equal(t, config.PresetRunLength, r.Preset)
	assert.Equal(t, "18446744073709551615", r.Seed)
	assert.False(t, r.FinishedAt.Valid)
	params, err := r.Params()
	require.NoError(t, err)
	assert.Equal(t, m, params)

	require.NoError(t, db.FinishRun(second, 42, true))
	r, err = db.GetRun(second)
	require.NoError(t, err)
	assert.True(t, r.FinishedAt.Valid)
	assert.Equal(t, int64(42), r.Steps)
	assert.True(t, r.Halted)

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID, "newest first")

	runs, err = db.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRuns_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetRun("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.FinishRun("missing", 1, false), ErrNotFound)
}

func TestRecorder(t *testing.T) {
	db := openTestDB(t)
	m, err := config.Preset(config.PresetClassic)
	require.NoError(t, err)
	id, err := db.CreateRun(m, 3)
	require.NoError(t, err)

	want := []engine.Record{
		{Step: 0, Metrics: engine.Metrics{Happy: 4, HappyMajority: 3, HappyMinority: 1, TotalSatisfaction: 0.5, Segregation: 0.25}},
		{Step: 1, Metrics: engine.Metrics{Happy: 8, HappyMajority: 6, HappyMinority: 2, Movements: 0, TotalSatisfaction: 1, MajoritySatisfaction: 1, MinoritySatisfaction: 1, Segregation: 0.75, HappinessReached: true}},
	}
	rec := db.Recorder(id)
	for _, r := range want {
		require.NoError(t, rec.Collect(r))
	}
	// Re-collecting a step replaces it.
	require.NoError(t, rec.Collect(want[1]))

	got, err := db.StepRecords(id)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	other, err := db.StepRecords("other")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSnapshots(t *testing.T) {
	db := openTestDB(t)
	layout := []byte{
		1, 0, 2, 0,
		0, 2, 2, 1,
		0, 0, 0, 1,
	}
	g, err := world.FromLayout(4, 3, false, layout)
	require.NoError(t, err)

	_, _, err = db.LatestSnapshot("run")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.SaveSnapshot("run", 0, g))
	require.NoError(t, g.Move(world.Coord{X: 0, Y: 0}, world.Coord{X: 1, Y: 0}))
	require.NoError(t, db.SaveSnapshot("run", 5, g))

	first, err := db.LoadSnapshot("run", 0)
	require.NoError(t, err)
	assert.Equal(t, layout, first.Layout())
	assert.Equal(t, 4, first.Width)
	assert.False(t, first.Torus)

	latest, step, err := db.LatestSnapshot("run")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), step)
	assert.Equal(t, g.Layout(), latest.Layout())

	_, err = db.LoadSnapshot("run", 3)
	assert.ErrorIs(t, err, ErrNotFound)
}
