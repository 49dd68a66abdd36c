package engine

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/talgya/segregation/internal/agents"
	"github.com/talgya/segregation/internal/config"
	"github.com/talgya/segregation/internal/entropy"
	"github.com/talgya/segregation/internal/rules"
	"github.com/talgya/segregation/internal/world"
)

// Decision is the outcome of one agent's activation.
type Decision uint8

const (
	DecisionHappy     Decision = iota // content; stays put
	DecisionRelocated                 // unhappy; moved to a claimed destination
	DecisionStuck                     // unhappy; no destination left for its kind
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case DecisionHappy:
		return "happy"
	case DecisionRelocated:
		return "relocated"
	case DecisionStuck:
		return "stuck"
	}
	return fmt.Sprintf("decision(%d)", uint8(d))
}

// Model holds the complete state of one run and advances it step by step.
// It is not safe for concurrent use; callers that share a Model across
// goroutines must serialize access.
type Model struct {
	Config   config.ModelConfig
	Seed     uint64
	Grid     *world.Grid
	Schedule *agents.Schedule
	Census   agents.Census // Agents per kind, fixed for the run

	Metrics Metrics // Most recent step
	Running bool

	policies Policies
	rng      *rand.Rand
	sinks    []Sink
	dest     *rules.Destinations
}

// Option configures a Model at construction.
type Option func(*Model)

// WithSink adds a metrics sink. Sinks receive step 0 during New.
func WithSink(s Sink) Option {
	return func(m *Model) {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
}

// New validates cfg, builds the grid, and populates it. A seed of 0 draws
// a fresh one (see Model.Seed). A model with no agents starts halted.
func New(cfg config.ModelConfig, seed uint64, opts ...Option) (*Model, error) {
	m, err := newModel(cfg, seed, opts)
	if err != nil {
		return nil, err
	}
	grid, err := world.NewGrid(cfg.Width, cfg.Height, cfg.Torus)
	if err != nil {
		return nil, err
	}
	m.Grid = grid

	spawner := agents.NewSpawner(m.rng)
	population, err := spawner.Populate(grid, agents.SpawnConfig{
		Density:    cfg.Density,
		MinorityPC: cfg.MinorityPC,
		Clustering: cfg.Clustering,
		NoiseSeed:  int64(m.Seed >> 1),
	})
	if err != nil {
		return nil, fmt.Errorf("populate: %w", err)
	}
	if err := m.start(population); err != nil {
		return nil, err
	}
	return m, nil
}

// FromGrid builds a model around the population already on g, such as a
// stored snapshot. Density and minority share in cfg are ignored; the grid
// shape must match cfg.
func FromGrid(cfg config.ModelConfig, seed uint64, g *world.Grid, opts ...Option) (*Model, error) {
	if g.Width != cfg.Width || g.Height != cfg.Height || g.Torus != cfg.Torus {
		return nil, fmt.Errorf("%w: grid %dx%d (torus=%v) does not match config %dx%d (torus=%v)",
			config.ErrDimensions, g.Width, g.Height, g.Torus, cfg.Width, cfg.Height, cfg.Torus)
	}
	m, err := newModel(cfg, seed, opts)
	if err != nil {
		return nil, err
	}
	m.Grid = g
	if err := m.start(agents.Adopt(g)); err != nil {
		return nil, err
	}
	return m, nil
}

// newModel validates cfg and prepares everything but the grid.
func newModel(cfg config.ModelConfig, seed uint64, opts []Option) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policies, err := PoliciesFor(cfg)
	if err != nil {
		return nil, err
	}

	seed = entropy.Resolve(seed)
	rng := entropy.New(seed)

	m := &Model{
		Config:   cfg,
		Seed:     seed,
		Schedule: agents.NewSchedule(rng),
		Running:  true,
		policies: policies,
		rng:      rng,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// start registers the population, reports step 0, and halts a model
// without agents.
func (m *Model) start(population []*agents.Agent) error {
	for _, a := range population {
		m.Schedule.Add(a)
	}
	m.Census = agents.CensusOf(population)

	if m.Schedule.Count() == 0 {
		m.Running = false
		slog.Info("model has no agents, halted at start",
			"width", m.Grid.Width, "height", m.Grid.Height, "density", m.Config.Density)
	}

	m.Metrics = Metrics{Segregation: Segregation(m.Grid, m.Schedule.Agents())}
	if err := m.collect(); err != nil {
		return err
	}

	slog.Debug("model initialized",
		"preset", m.Config.Preset,
		"seed", m.Seed,
		"majority", m.Census[world.Majority],
		"minority", m.Census[world.Minority],
	)
	return nil
}

// Steps returns the number of completed steps.
func (m *Model) Steps() uint64 {
	return m.Schedule.Time
}

// Policies returns the rule triple in use.
func (m *Model) Policies() Policies {
	return m.policies
}

// Destinations returns the eligible-destination sets of the current step.
// They are rebuilt at the start of every step; nil before the first step.
func (m *Model) Destinations() *rules.Destinations {
	return m.dest
}

// Step runs one full tick: scan eligible destinations, activate every
// agent once in random order, aggregate metrics, report them, and check
// termination. It reports whether the model is still running. Stepping a
// halted model does nothing.
func (m *Model) Step() (bool, error) {
	if !m.Running {
		return false, nil
	}

	var t tally
	m.dest = rules.Scan(m.Grid, m.policies.Eligibility)

	var stepErr error
	m.Schedule.Step(func(a *agents.Agent) {
		if stepErr != nil {
			return
		}
		d, err := m.activate(a, m.dest)
		if err != nil {
			stepErr = err
			return
		}
		switch d {
		case DecisionHappy:
			t.happy[a.Kind]++
		case DecisionRelocated:
			t.moved++
		case DecisionStuck:
			t.stuck++
		}
	})
	if stepErr != nil {
		m.Running = false
		return false, fmt.Errorf("step %d: %w", m.Steps(), stepErr)
	}

	m.Metrics = aggregate(t, m.Census, m.Grid, m.Schedule.Agents())
	if err := m.collect(); err != nil {
		return m.Running, err
	}

	slog.Debug("step complete",
		"step", m.Steps(),
		"happy", m.Metrics.Happy,
		"movements", m.Metrics.Movements,
		"stuck", m.Metrics.Stuck,
	)

	if m.policies.Termination.Halt(rules.Outcome{
		Step:      m.Steps(),
		Agents:    m.Schedule.Count(),
		Happy:     m.Metrics.Happy,
		Movements: m.Metrics.Movements,
	}) {
		m.Running = false
		slog.Info("model halted",
			"step", m.Steps(),
			"termination", m.policies.Termination.String(),
			"happy", m.Metrics.Happy,
			"agents", m.Schedule.Count(),
			"segregation", m.Metrics.Segregation,
		)
	}
	return m.Running, nil
}

// activate evaluates one agent and relocates it if it is unhappy and its
// kind still has a destination this step.
func (m *Model) activate(a *agents.Agent, dest *rules.Destinations) (Decision, error) {
	if m.policies.Happiness.Happy(a.Kind, m.Grid.Neighbors(a.Position)) {
		return DecisionHappy, nil
	}
	to, ok := dest.Claim(a.Kind, m.rng)
	if !ok {
		return DecisionStuck, nil
	}
	if err := m.Grid.Move(a.Position, to); err != nil {
		return DecisionStuck, fmt.Errorf("move agent %d: %w", a.ID, err)
	}
	a.Position = to
	return DecisionRelocated, nil
}

// Run steps until the model halts or maxSteps steps have completed in
// this call. maxSteps 0 means no limit.
func (m *Model) Run(maxSteps int) error {
	for i := 0; m.Running && (maxSteps == 0 || i < maxSteps); i++ {
		if _, err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) collect() error {
	rec := Record{Step: m.Steps(), Metrics: m.Metrics}
	for _, s := range m.sinks {
		if err := s.Collect(rec); err != nil {
			return fmt.Errorf("collect step %d: %w", rec.Step, err)
		}
	}
	return nil
}
