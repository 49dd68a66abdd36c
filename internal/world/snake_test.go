package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnake_SlotOrder(t *testing.T) {
	g := mustGrid(t, 5, 5, true)
	center := Coord{2, 2}
	// Put a minority agent at each offset in turn and check which slot lights up.
	for slot, off := range snakeOffsets {
		c := center.Add(off[0], off[1])
		require.NoError(t, g.Place(Occupant{ID: 1, Kind: Minority}, c))

		r := g.Snake(center, BoundaryTorus)
		for i, s := range r {
			assert.Equal(t, i == slot, s.Is(Minority), "slot %d with agent at offset %v", i, off)
		}

		_, err := g.Remove(c)
		require.NoError(t, err)
	}
}

func TestSnake_Boundary(t *testing.T) {
	g := mustGrid(t, 3, 3, true)
	// Fill every cell except the corner we sample.
	id := uint64(0)
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			if x == 0 && y == 0 {
				continue
			}
			id++
			require.NoError(t, g.Place(Occupant{ID: id, Kind: Majority}, Coord{x, y}))
		}
	}

	torus := g.Snake(Coord{0, 0}, BoundaryTorus)
	assert.Equal(t, 8, torus.Counts()[Majority])

	open := g.Snake(Coord{0, 0}, BoundaryOpen)
	// Only (1,0), (1,1), (0,1) are inside the grid.
	assert.Equal(t, 3, open.Counts()[Majority])
	assert.Equal(t, Absent, open[0]) // (-1,-1)
	assert.Equal(t, Absent, open[6]) // (1,-1)
	assert.True(t, open[3].Is(Majority))
	assert.True(t, open[4].Is(Majority))
	assert.True(t, open[5].Is(Majority))
}

func TestSnake_BoundedGridNeverWraps(t *testing.T) {
	g := mustGrid(t, 5, 5, false)
	require.NoError(t, g.Place(Occupant{ID: 1, Kind: Minority}, Coord{4, 2}))

	for _, b := range []Boundary{BoundaryTorus, BoundaryOpen} {
		r := g.Snake(Coord{0, 2}, b)
		assert.Equal(t, [2]int{0, 0}, r.Counts(), "boundary %v", b)
		for i := 0; i < 3; i++ {
			assert.Equal(t, Absent, r[i], "slot %d is off the grid", i)
		}
	}
	assert.Empty(t, g.Neighbors(Coord{0, 2}))
}

func TestParseBoundary(t *testing.T) {
	b, err := ParseBoundary("")
	require.NoError(t, err)
	assert.Equal(t, BoundaryTorus, b)

	b, err = ParseBoundary("open")
	require.NoError(t, err)
	assert.Equal(t, BoundaryOpen, b)

	_, err = ParseBoundary("mirror")
	assert.Error(t, err)
}
