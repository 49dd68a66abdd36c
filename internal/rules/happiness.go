// Package rules holds the per-step decision rules of the segregation
// model: when an agent is content, which empty cells each kind may move
// into, and when a run stops.
package rules

import (
	"github.com/talgya/segregation/internal/world"
)

// Happiness decides whether an agent of kind k is content given the
// occupants around it.
type Happiness interface {
	Happy(k world.Kind, neighbors []world.Occupant) bool
}

// Similar counts the neighbors sharing kind k, and all present neighbors.
func Similar(k world.Kind, neighbors []world.Occupant) (similar, total int) {
	for _, n := range neighbors {
		if n.Kind == k {
			similar++
		}
	}
	return similar, len(neighbors)
}

// AbsoluteCount is content with at least Threshold like neighbors.
type AbsoluteCount struct {
	Threshold int
}

// Happy implements Happiness.
func (p AbsoluteCount) Happy(k world.Kind, neighbors []world.Occupant) bool {
	similar, _ := Similar(k, neighbors)
	return similar >= p.Threshold
}

// Fraction is content when like neighbors make up at least Threshold of
// the present neighbors. An agent with no neighbors at all is never content.
type Fraction struct {
	Threshold float64
}

// Happy implements Happiness.
func (p Fraction) Happy(k world.Kind, neighbors []world.Occupant) bool {
	similar, total := Similar(k, neighbors)
	if total == 0 {
		return false
	}
	return float64(similar)/float64(total) >= p.Threshold
}
