// Package agents provides the agent data model, the random-activation
// schedule, and the spawner that creates the initial population.
package agents

import (
	"github.com/talgya/segregation/internal/world"
)

// AgentID is a unique identifier for an agent.
type AgentID uint64

// Agent is a resident of the grid. Agents are created once, at model
// initialization, and are never destroyed mid-run.
type Agent struct {
	ID       AgentID     `json:"id"`
	Kind     world.Kind  `json:"kind"`
	Position world.Coord `json:"position"` // Must match the grid cell holding the agent
}

// Occupant returns the grid record for the agent.
func (a *Agent) Occupant() world.Occupant {
	return world.Occupant{ID: uint64(a.ID), Kind: a.Kind}
}

// Census counts agents per kind, indexed by world.Kind.
type Census [2]int

// Total returns the sum over both kinds.
func (c Census) Total() int {
	return c[world.Majority] + c[world.Minority]
}

// CensusOf counts the given agents by kind.
func CensusOf(list []*Agent) Census {
	var c Census
	for _, a := range list {
		c[a.Kind]++
	}
	return c
}
