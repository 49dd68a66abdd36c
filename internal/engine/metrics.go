package engine

import (
	"github.com/talgya/segregation/internal/agents"
	"github.com/talgya/segregation/internal/world"
)

// Metrics are the per-step aggregates reported to sinks.
type Metrics struct {
	Happy         int `json:"happy"`
	HappyMajority int `json:"happy_majority"`
	HappyMinority int `json:"happy_minority"`
	Movements     int `json:"movements"`
	Stuck         int `json:"stuck"`

	TotalSatisfaction    float64 `json:"total_satisfaction_index"`
	MajoritySatisfaction float64 `json:"majority_satisfaction_index"`
	MinoritySatisfaction float64 `json:"minority_satisfaction_index"`
	Segregation          float64 `json:"segregation"`
	HappinessReached     bool    `json:"happiness_reached"`
}

// Record is one step's metrics as delivered to a Sink. Step 0 is the
// state right after initialization.
type Record struct {
	Step uint64 `json:"step"`
	Metrics
}

// Sink accepts one Record per step.
type Sink interface {
	Collect(Record) error
}

// MetricNames lists the exported metric columns in Values order.
var MetricNames = []string{
	"happy",
	"movements",
	"stuck",
	"total_satisfaction_index",
	"majority_satisfaction_index",
	"minority_satisfaction_index",
	"segregation",
	"happiness_reached",
}

// Values returns the metrics in MetricNames order. Booleans are 0 or 1.
func (m Metrics) Values() []float64 {
	reached := 0.0
	if m.HappinessReached {
		reached = 1
	}
	return []float64{
		float64(m.Happy),
		float64(m.Movements),
		float64(m.Stuck),
		m.TotalSatisfaction,
		m.MajoritySatisfaction,
		m.MinoritySatisfaction,
		m.Segregation,
		reached,
	}
}

// tally accumulates one step's counters. It is created fresh for every
// step and folded into Metrics when the step ends.
type tally struct {
	happy [2]int
	moved int
	stuck int
}

// aggregate folds a finished step's tally into Metrics.
func aggregate(t tally, census agents.Census, g *world.Grid, list []*agents.Agent) Metrics {
	happy := t.happy[world.Majority] + t.happy[world.Minority]
	total := census.Total()
	return Metrics{
		Happy:                happy,
		HappyMajority:        t.happy[world.Majority],
		HappyMinority:        t.happy[world.Minority],
		Movements:            t.moved,
		Stuck:                t.stuck,
		TotalSatisfaction:    ratio(happy, total),
		MajoritySatisfaction: ratio(t.happy[world.Majority], census[world.Majority]),
		MinoritySatisfaction: ratio(t.happy[world.Minority], census[world.Minority]),
		Segregation:          Segregation(g, list),
		HappinessReached:     happy == total,
	}
}

// Segregation returns the share of agents whose present neighbors all
// share the agent's kind. Agents with no neighbors count as segregated.
func Segregation(g *world.Grid, list []*agents.Agent) float64 {
	segregated := 0
	for _, a := range list {
		mixed := false
		for _, n := range g.Neighbors(a.Position) {
			if n.Kind != a.Kind {
				mixed = true
				break
			}
		}
		if !mixed {
			segregated++
		}
	}
	return ratio(segregated, len(list))
}

// ratio divides with the denominator floored at 1.
func ratio(n, d int) float64 {
	if d < 1 {
		d = 1
	}
	return float64(n) / float64(d)
}
