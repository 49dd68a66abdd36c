// Package world provides the toroidal grid, cell coordinates, and the
// neighborhood samplers the segregation rules are built on.
package world

import "fmt"

// Coord is a cell position on the grid. 0 <= X < width, 0 <= Y < height.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// String returns "(x,y)".
func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Add returns the coordinate offset by (dx, dy), without wrapping.
func (c Coord) Add(dx, dy int) Coord {
	return Coord{X: c.X + dx, Y: c.Y + dy}
}

// Kind is an agent's group membership.
type Kind uint8

const (
	Majority Kind = iota // Layout value 1
	Minority             // Layout value 2
)

// Kinds lists every kind in index order. Per-kind arrays are indexed by Kind.
var Kinds = [2]Kind{Majority, Minority}

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case Majority:
		return "majority"
	case Minority:
		return "minority"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Other returns the opposite kind.
func (k Kind) Other() Kind {
	if k == Majority {
		return Minority
	}
	return Majority
}

// Occupant is what a grid cell holds: the agent's identity and kind.
type Occupant struct {
	ID   uint64 `json:"id"`
	Kind Kind   `json:"kind"`
}

// Slot is one position of a fixed neighbor ring. A slot is either Present
// with a kind, or Absent (no agent, or outside an open boundary).
type Slot struct {
	kind    Kind
	present bool
}

// Absent is the empty slot.
var Absent = Slot{}

// Present returns a slot holding an occupant of kind k.
func Present(k Kind) Slot {
	return Slot{kind: k, present: true}
}

// Kind returns the slot's kind and whether the slot is present.
func (s Slot) Kind() (Kind, bool) {
	return s.kind, s.present
}

// Is reports whether the slot is present and holds kind k.
func (s Slot) Is(k Kind) bool {
	return s.present && s.kind == k
}

// String returns "majority", "minority", or "-" for Absent.
func (s Slot) String() string {
	if !s.present {
		return "-"
	}
	return s.kind.String()
}

// Ring is the 8-slot neighbor array produced by the snake sampler.
type Ring [8]Slot

// Counts returns the number of present slots of each kind, indexed by Kind.
func (r Ring) Counts() [2]int {
	var n [2]int
	for _, s := range r {
		if k, ok := s.Kind(); ok {
			n[k]++
		}
	}
	return n
}

// Boundary selects how samplers treat offsets that fall off the grid.
type Boundary uint8

const (
	BoundaryTorus Boundary = iota // wrap modulo width/height
	BoundaryOpen                  // off-grid slots are Absent
)

// ParseBoundary maps "torus" or "open" to a Boundary.
func ParseBoundary(s string) (Boundary, error) {
	switch s {
	case "", "torus":
		return BoundaryTorus, nil
	case "open":
		return BoundaryOpen, nil
	}
	return BoundaryTorus, fmt.Errorf("world: unknown boundary %q", s)
}
