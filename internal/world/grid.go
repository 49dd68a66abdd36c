package world

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensions indicates a grid with a non-positive width or height.
	ErrDimensions = errors.New("world: grid width and height must be positive")
	// ErrOutOfBounds indicates a coordinate outside a non-toroidal grid.
	ErrOutOfBounds = errors.New("world: coordinate out of bounds")
	// ErrOccupied indicates a placement onto a cell that already holds an agent.
	ErrOccupied = errors.New("world: cell already occupied")
	// ErrEmptyCell indicates a move or removal from a cell with no agent.
	ErrEmptyCell = errors.New("world: cell is empty")
	// ErrLayout indicates a malformed layout buffer.
	ErrLayout = errors.New("world: malformed layout")
)

// mooreOffsets is the standard Moore iteration order (radius 1).
var mooreOffsets = [8][2]int{{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}}

// Grid is a rectangular cell array holding at most one occupant per cell.
// When Torus is set, every coordinate wraps modulo Width and Height.
type Grid struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	Torus  bool `json:"torus"`

	cells  []Occupant
	filled []bool
	count  int
}

// NewGrid creates an empty grid.
func NewGrid(width, height int, torus bool) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensions, width, height)
	}
	n := width * height
	return &Grid{
		Width:  width,
		Height: height,
		Torus:  torus,
		cells:  make([]Occupant, n),
		filled: make([]bool, n),
	}, nil
}

// Size returns the number of cells.
func (g *Grid) Size() int {
	return g.Width * g.Height
}

// Occupied returns the number of occupied cells.
func (g *Grid) Occupied() int {
	return g.count
}

// InBounds reports whether c lies inside the grid without wrapping.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

// Wrap folds c onto the torus.
func (g *Grid) Wrap(c Coord) Coord {
	return Coord{X: mod(c.X, g.Width), Y: mod(c.Y, g.Height)}
}

// resolve maps c to a cell index, wrapping on a torus.
func (g *Grid) resolve(c Coord) (int, error) {
	if g.Torus {
		c = g.Wrap(c)
	} else if !g.InBounds(c) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	return c.Y*g.Width + c.X, nil
}

// IsEmpty reports whether c holds no agent. Off-grid cells of a bounded
// grid are reported as not empty, so nothing can be placed there.
func (g *Grid) IsEmpty(c Coord) bool {
	i, err := g.resolve(c)
	if err != nil {
		return false
	}
	return !g.filled[i]
}

// OccupantAt returns the occupant of c, if any.
func (g *Grid) OccupantAt(c Coord) (Occupant, bool) {
	i, err := g.resolve(c)
	if err != nil || !g.filled[i] {
		return Occupant{}, false
	}
	return g.cells[i], true
}

// Place puts o on the empty cell c.
func (g *Grid) Place(o Occupant, c Coord) error {
	i, err := g.resolve(c)
	if err != nil {
		return err
	}
	if g.filled[i] {
		return fmt.Errorf("%w: %s", ErrOccupied, c)
	}
	g.cells[i] = o
	g.filled[i] = true
	g.count++
	return nil
}

// Move relocates the occupant of from onto the empty cell to.
func (g *Grid) Move(from, to Coord) error {
	fi, err := g.resolve(from)
	if err != nil {
		return err
	}
	ti, err := g.resolve(to)
	if err != nil {
		return err
	}
	if !g.filled[fi] {
		return fmt.Errorf("%w: %s", ErrEmptyCell, from)
	}
	if g.filled[ti] {
		return fmt.Errorf("%w: %s", ErrOccupied, to)
	}
	g.cells[ti] = g.cells[fi]
	g.filled[ti] = true
	g.cells[fi] = Occupant{}
	g.filled[fi] = false
	return nil
}

// Remove clears c and returns its former occupant.
func (g *Grid) Remove(c Coord) (Occupant, error) {
	i, err := g.resolve(c)
	if err != nil {
		return Occupant{}, err
	}
	if !g.filled[i] {
		return Occupant{}, fmt.Errorf("%w: %s", ErrEmptyCell, c)
	}
	o := g.cells[i]
	g.cells[i] = Occupant{}
	g.filled[i] = false
	g.count--
	return o, nil
}

// Empties returns every empty cell, x-major (x outer, y inner).
func (g *Grid) Empties() []Coord {
	out := make([]Coord, 0, g.Size()-g.count)
	for x := 0; x < g.Width; x++ {
		for y := 0; y < g.Height; y++ {
			if !g.filled[y*g.Width+x] {
				out = append(out, Coord{X: x, Y: y})
			}
		}
	}
	return out
}

// Neighbors returns the occupants of the Moore neighborhood (radius 1) of c.
// On a torus the offsets wrap; each distinct cell is visited once, so small
// grids whose wrapped offsets coincide do not double count. c itself is
// never included.
func (g *Grid) Neighbors(c Coord) []Occupant {
	if g.Torus {
		c = g.Wrap(c)
	}
	var seen [8]Coord
	n := 0
	out := make([]Occupant, 0, 8)

next:
	for _, off := range mooreOffsets {
		nc := c.Add(off[0], off[1])
		if g.Torus {
			nc = g.Wrap(nc)
		} else if !g.InBounds(nc) {
			continue
		}
		if nc == c {
			continue
		}
		for _, s := range seen[:n] {
			if s == nc {
				continue next
			}
		}
		seen[n] = nc
		n++

		i := nc.Y*g.Width + nc.X
		if g.filled[i] {
			out = append(out, g.cells[i])
		}
	}
	return out
}

// Layout encodes the grid row-major: 0 empty, 1 majority, 2 minority.
func (g *Grid) Layout() []byte {
	out := make([]byte, g.Size())
	for i, ok := range g.filled {
		if ok {
			out[i] = byte(g.cells[i].Kind) + 1
		}
	}
	return out
}

// FromLayout rebuilds a grid from a Layout encoding. Occupant IDs are
// assigned sequentially from 1 in row-major order.
func FromLayout(width, height int, torus bool, layout []byte) (*Grid, error) {
	g, err := NewGrid(width, height, torus)
	if err != nil {
		return nil, err
	}
	if len(layout) != g.Size() {
		return nil, fmt.Errorf("%w: got %d bytes for %dx%d", ErrLayout, len(layout), width, height)
	}
	var id uint64
	for i, b := range layout {
		if b == 0 {
			continue
		}
		if b > 2 {
			return nil, fmt.Errorf("%w: invalid cell value %d at %d", ErrLayout, b, i)
		}
		id++
		g.cells[i] = Occupant{ID: id, Kind: Kind(b - 1)}
		g.filled[i] = true
		g.count++
	}
	return g, nil
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}
