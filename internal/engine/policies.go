package engine

import (
	"fmt"

	"github.com/talgya/segregation/internal/config"
	"github.com/talgya/segregation/internal/rules"
	"github.com/talgya/segregation/internal/world"
)

// Policies is the rule triple a Model runs with.
type Policies struct {
	Happiness   rules.Happiness
	Eligibility rules.Classifier
	Termination rules.Termination
}

// PoliciesFor builds the rule triple described by a validated model config.
func PoliciesFor(m config.ModelConfig) (Policies, error) {
	var p Policies

	switch m.Happiness.Policy {
	case config.HappinessAbsolute:
		p.Happiness = rules.AbsoluteCount{Threshold: int(m.Happiness.Threshold)}
	case config.HappinessFraction:
		p.Happiness = rules.Fraction{Threshold: m.Happiness.Threshold}
	default:
		return p, fmt.Errorf("%w: happiness %q", config.ErrUnknownPolicy, m.Happiness.Policy)
	}

	boundary, err := world.ParseBoundary(m.Eligibility.Boundary)
	if err != nil {
		return p, fmt.Errorf("%w: %v", config.ErrUnknownPolicy, err)
	}

	e := m.Eligibility
	switch e.Policy {
	case config.EligibleAnywhere:
		p.Eligibility = rules.Anywhere{}
	case config.EligibleComposition:
		p.Eligibility = rules.Composition{Threshold: e.Threshold}
	case config.EligibleSocioeconomic:
		homophily := 0.0
		if m.Happiness.Policy == config.HappinessFraction {
			homophily = m.Happiness.Threshold
		}
		var th [2]float64
		th[world.Majority] = e.MajorityThreshold
		th[world.Minority] = e.MinorityThreshold
		p.Eligibility = rules.Socioeconomic{Homophily: homophily, Threshold: th, Boundary: boundary}
	case config.EligibleRunLength:
		var run [2]int
		run[world.Majority] = e.MajorityRun
		run[world.Minority] = e.MinorityRun
		p.Eligibility = rules.RunLength{Run: run, Boundary: boundary}
	default:
		return p, fmt.Errorf("%w: eligibility %q", config.ErrUnknownPolicy, e.Policy)
	}

	p.Termination, err = rules.ParseTermination(m.Termination)
	if err != nil {
		return p, fmt.Errorf("%w: %v", config.ErrUnknownPolicy, err)
	}
	return p, nil
}
