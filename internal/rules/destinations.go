package rules

import (
	"github.com/talgya/segregation/internal/world"
)

// Picker draws a uniform index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

// Destinations holds the empty cells each kind may move into during one
// step. A cell may be eligible for both kinds; claiming it for either kind
// removes it from both sets, so no cell receives two agents in one step.
type Destinations struct {
	cells [2][]world.Coord
	pos   [2]map[world.Coord]int
}

// NewDestinations creates empty destination sets.
func NewDestinations() *Destinations {
	return &Destinations{
		pos: [2]map[world.Coord]int{
			make(map[world.Coord]int),
			make(map[world.Coord]int),
		},
	}
}

// Scan classifies every empty cell of g, in the grid's x-major order, and
// returns the resulting sets. Scanning an unchanged grid twice yields the
// same sets in the same order.
func Scan(g *world.Grid, cl Classifier) *Destinations {
	d := NewDestinations()
	for _, c := range g.Empties() {
		e := cl.Classify(g, c)
		for _, k := range world.Kinds {
			if e[k] {
				d.add(k, c)
			}
		}
	}
	return d
}

func (d *Destinations) add(k world.Kind, c world.Coord) {
	if _, ok := d.pos[k][c]; ok {
		return
	}
	d.pos[k][c] = len(d.cells[k])
	d.cells[k] = append(d.cells[k], c)
}

// Len returns the number of cells open to kind k.
func (d *Destinations) Len(k world.Kind) int {
	return len(d.cells[k])
}

// Contains reports whether c is open to kind k.
func (d *Destinations) Contains(k world.Kind, c world.Coord) bool {
	_, ok := d.pos[k][c]
	return ok
}

// Cells returns a copy of the cells open to kind k.
func (d *Destinations) Cells(k world.Kind) []world.Coord {
	out := make([]world.Coord, len(d.cells[k]))
	copy(out, d.cells[k])
	return out
}

// Claim draws a cell uniformly from kind k's set and removes it from both
// sets. It reports false when k has no destination left.
func (d *Destinations) Claim(k world.Kind, p Picker) (world.Coord, bool) {
	n := len(d.cells[k])
	if n == 0 {
		return world.Coord{}, false
	}
	c := d.cells[k][p.IntN(n)]
	d.Remove(c)
	return c, true
}

// Remove drops c from both sets.
func (d *Destinations) Remove(c world.Coord) {
	for _, k := range world.Kinds {
		i, ok := d.pos[k][c]
		if !ok {
			continue
		}
		last := len(d.cells[k]) - 1
		moved := d.cells[k][last]
		d.cells[k][i] = moved
		d.pos[k][moved] = i
		d.cells[k] = d.cells[k][:last]
		delete(d.pos[k], c)
	}
}
