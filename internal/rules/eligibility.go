package rules

import (
	"github.com/talgya/segregation/internal/world"
)

// Eligibility classifies an empty cell for each kind, indexed by world.Kind.
type Eligibility [2]bool

// Classifier decides which kinds may relocate into the empty cell c.
type Classifier interface {
	Classify(g *world.Grid, c world.Coord) Eligibility
}

// Anywhere admits every empty cell for both kinds.
type Anywhere struct{}

// Classify implements Classifier.
func (Anywhere) Classify(*world.Grid, world.Coord) Eligibility {
	return Eligibility{true, true}
}

// Composition admits a cell for kind k when k makes up at least Threshold
// of the cell's present Moore neighbors. Cells with no neighbors admit
// neither kind.
type Composition struct {
	Threshold float64
}

// Classify implements Classifier.
func (p Composition) Classify(g *world.Grid, c world.Coord) Eligibility {
	var n [2]int
	for _, o := range g.Neighbors(c) {
		n[o.Kind]++
	}
	total := n[0] + n[1]
	if total == 0 {
		return Eligibility{}
	}
	var e Eligibility
	for _, k := range world.Kinds {
		e[k] = float64(n[k])/float64(total) >= p.Threshold
	}
	return e
}

// Socioeconomic samples the snake ring and admits a cell for kind k when
// k's share of present neighbors meets both Homophily and the kind's own
// threshold. A kind with a zero threshold is unconstrained and may move
// into any empty cell.
type Socioeconomic struct {
	Homophily float64
	Threshold [2]float64
	Boundary  world.Boundary
}

// Classify implements Classifier.
func (p Socioeconomic) Classify(g *world.Grid, c world.Coord) Eligibility {
	n := g.Snake(c, p.Boundary).Counts()
	total := n[0] + n[1]

	var e Eligibility
	for _, k := range world.Kinds {
		if p.Threshold[k] <= 0 {
			e[k] = true
			continue
		}
		if total == 0 {
			continue
		}
		share := float64(n[k]) / float64(total)
		e[k] = share >= p.Threshold[k] && share >= p.Homophily
	}
	return e
}

// RunLength samples the snake ring and admits a cell for kind k when the
// ring holds Run[k] consecutive neighbors of kind k. A zero run length
// leaves the kind unconstrained.
type RunLength struct {
	Run      [2]int
	Boundary world.Boundary
}

// Classify implements Classifier.
func (p RunLength) Classify(g *world.Grid, c world.Coord) Eligibility {
	ring := g.Snake(c, p.Boundary)
	var e Eligibility
	for _, k := range world.Kinds {
		e[k] = HasRun(ring, k, p.Run[k])
	}
	return e
}
