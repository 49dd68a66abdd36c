package agents

import (
	"fmt"
	"math/rand/v2"

	"github.com/talgya/segregation/internal/world"
)

// SpawnConfig controls initial population generation.
type SpawnConfig struct {
	Density    float64 // Probability that a cell is occupied
	MinorityPC float64 // Probability that an occupant is Minority
	Clustering float64 // 0 = uniform kinds; 1 = kinds follow the noise field
	NoiseSeed  int64
}

// Spawner creates the initial population.
type Spawner struct {
	rng    *rand.Rand
	nextID AgentID
}

// NewSpawner creates a spawner drawing from rng.
func NewSpawner(rng *rand.Rand) *Spawner {
	return &Spawner{rng: rng, nextID: 1}
}

// Populate visits every cell of g (x outer, y inner). A cell is occupied
// with probability Density; its occupant is Minority with probability
// MinorityPC, else Majority. With Clustering > 0 the minority probability
// is blended with a smooth noise field so like kinds start near each other.
func (s *Spawner) Populate(g *world.Grid, cfg SpawnConfig) ([]*Agent, error) {
	var field *world.NoiseField
	if cfg.Clustering > 0 {
		field = world.NewNoiseField(cfg.NoiseSeed, g.Width, g.Height, g.Torus)
	}

	out := make([]*Agent, 0, int(float64(g.Size())*cfg.Density)+1)
	for x := 0; x < g.Width; x++ {
		for y := 0; y < g.Height; y++ {
			if s.rng.Float64() >= cfg.Density {
				continue
			}
			c := world.Coord{X: x, Y: y}

			p := cfg.MinorityPC
			if field != nil {
				p = blend(cfg.MinorityPC, field.At(c), cfg.Clustering)
			}
			kind := world.Majority
			if s.rng.Float64() < p {
				kind = world.Minority
			}

			a := &Agent{ID: s.nextID, Kind: kind, Position: c}
			if err := g.Place(a.Occupant(), c); err != nil {
				return nil, fmt.Errorf("place agent %d: %w", a.ID, err)
			}
			s.nextID++
			out = append(out, a)
		}
	}
	return out, nil
}

// blend shifts the base probability toward the local noise value. The
// noise is centered on 0.5, so the population-wide share stays near base.
func blend(base, noise, weight float64) float64 {
	biased := base + (noise-0.5)*2
	if biased < 0 {
		biased = 0
	}
	if biased > 1 {
		biased = 1
	}
	return (1-weight)*base + weight*biased
}

// Adopt returns agents for the occupants already on g, row by row, keeping
// their IDs. It is used to resume from a stored grid.
func Adopt(g *world.Grid) []*Agent {
	out := make([]*Agent, 0, g.Occupied())
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			c := world.Coord{X: x, Y: y}
			if o, ok := g.OccupantAt(c); ok {
				out = append(out, &Agent{ID: AgentID(o.ID), Kind: o.Kind, Position: c})
			}
		}
	}
	return out
}
