package agents

import (
	"math/rand/v2"
)

// Schedule is the agent registry and random-activation scheduler. Every
// step activates each registered agent exactly once, in a fresh random
// order, strictly one after another.
type Schedule struct {
	Time uint64 // Steps completed

	agents []*Agent
	order  []int
	rng    *rand.Rand
}

// NewSchedule creates an empty schedule drawing activation order from rng.
func NewSchedule(rng *rand.Rand) *Schedule {
	return &Schedule{rng: rng}
}

// Add registers an agent.
func (s *Schedule) Add(a *Agent) {
	s.agents = append(s.agents, a)
	s.order = append(s.order, len(s.order))
}

// Count returns the number of registered agents.
func (s *Schedule) Count() int {
	return len(s.agents)
}

// Agents returns the agents in registration order. Callers must not
// modify the returned slice.
func (s *Schedule) Agents() []*Agent {
	return s.agents
}

// Step activates all agents in random order and advances Time.
func (s *Schedule) Step(activate func(*Agent)) {
	for i := range s.order {
		s.order[i] = i
	}
	s.rng.Shuffle(len(s.order), func(i, j int) {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})
	for _, i := range s.order {
		activate(s.agents[i])
	}
	s.Time++
}
