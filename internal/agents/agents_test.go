package agents

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/segregation/internal/world"
)

func newGrid(t *testing.T, w, h int) *world.Grid {
	t.Helper()
	g, err := world.NewGrid(w, h, true)
	require.NoError(t, err)
	return g
}

func TestPopulate_DensityBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))

	empty := newGrid(t, 6, 5)
	list, err := NewSpawner(rng).Populate(empty, SpawnConfig{Density: 0, MinorityPC: 0.5})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, empty.Occupied())

	full := newGrid(t, 6, 5)
	list, err = NewSpawner(rng).Populate(full, SpawnConfig{Density: 1, MinorityPC: 0})
	require.NoError(t, err)
	require.Len(t, list, 30)
	assert.Equal(t, 30, full.Occupied())
	assert.Equal(t, Census{30, 0}, CensusOf(list))
}

func TestPopulate_IDsAndOrder(t *testing.T) {
	g := newGrid(t, 3, 4)
	list, err := NewSpawner(rand.New(rand.NewPCG(2, 3))).Populate(g, SpawnConfig{Density: 1, MinorityPC: 1})
	require.NoError(t, err)
	require.Len(t, list, 12)

	for i, a := range list {
		assert.Equal(t, AgentID(i+1), a.ID)
		assert.Equal(t, world.Minority, a.Kind)
		// x outer, y inner
		assert.Equal(t, world.Coord{X: i / 4, Y: i % 4}, a.Position)
		o, ok := g.OccupantAt(a.Position)
		require.True(t, ok)
		assert.Equal(t, a.Occupant(), o)
	}
}

func TestPopulate_Deterministic(t *testing.T) {
	cfg := SpawnConfig{Density: 0.6, MinorityPC: 0.3, Clustering: 0.8, NoiseSeed: 5}
	spawn := func() []byte {
		g := newGrid(t, 10, 10)
		_, err := NewSpawner(rand.New(rand.NewPCG(9, 9))).Populate(g, cfg)
		require.NoError(t, err)
		return g.Layout()
	}
	assert.Equal(t, spawn(), spawn())
}

func TestBlend(t *testing.T) {
	assert.Equal(t, 0.3, blend(0.3, 0.9, 0))
	assert.InDelta(t, 1.0, blend(0.3, 0.9, 1), 1e-9)
	assert.InDelta(t, 0.0, blend(0.3, 0.1, 1), 1e-9)
	assert.InDelta(t, 0.3, blend(0.3, 0.5, 1), 1e-9)
}

func TestAdopt(t *testing.T) {
	g, err := world.FromLayout(3, 2, false, []byte{
		0, 2, 0,
		1, 0, 1,
	})
	require.NoError(t, err)

	list := Adopt(g)
	require.Len(t, list, 3)
	assert.Equal(t, world.Coord{X: 1, Y: 0}, list[0].Position)
	assert.Equal(t, world.Minority, list[0].Kind)
	assert.Equal(t, world.Coord{X: 0, Y: 1}, list[1].Position)
	assert.Equal(t, world.Coord{X: 2, Y: 1}, list[2].Position)
	for _, a := range list {
		o, ok := g.OccupantAt(a.Position)
		require.True(t, ok)
		assert.Equal(t, o.ID, uint64(a.ID))
	}
	assert.Equal(t, Census{2, 1}, CensusOf(list))
}

func TestSchedule_ActivatesEachAgentOnce(t *testing.T) {
	s := NewSchedule(rand.New(rand.NewPCG(4, 4)))
	for i := 1; i <= 20; i++ {
		s.Add(&Agent{ID: AgentID(i)})
	}
	require.Equal(t, 20, s.Count())

	var orders [][]AgentID
	for step := 0; step < 3; step++ {
		seen := make(map[AgentID]int)
		var order []AgentID
		s.Step(func(a *Agent) {
			seen[a.ID]++
			order = append(order, a.ID)
		})
		assert.Len(t, seen, 20)
		for id, n := range seen {
			assert.Equal(t, 1, n, "agent %d", id)
		}
		orders = append(orders, order)
	}
	assert.Equal(t, uint64(3), s.Time)
	assert.NotEqual(t, orders[0], orders[1], "order is reshuffled every step")
}
