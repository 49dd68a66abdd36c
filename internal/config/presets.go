package config

import (
	"fmt"
	"sort"
)

// Preset names.
const (
	PresetClassic       = "classic"
	PresetFraction      = "fraction"
	PresetComposition   = "composition"
	PresetSocioeconomic = "socioeconomic"
	PresetRunLength     = "runlength"
)

var presets = map[string]func(m *ModelConfig){
	// Absolute like-neighbor count; the unhappy move to any empty cell.
	PresetClassic: func(m *ModelConfig) {
		m.Happiness = HappinessConfig{Policy: HappinessAbsolute, Threshold: 3}
		m.Eligibility = EligibilityConfig{Policy: EligibleAnywhere}
		m.Termination = "all-happy"
	},
	// Like-neighbor share; the unhappy move to any empty cell.
	PresetFraction: func(m *ModelConfig) {
		m.Happiness = HappinessConfig{Policy: HappinessFraction, Threshold: 0.4}
		m.Eligibility = EligibilityConfig{Policy: EligibleAnywhere}
		m.Termination = "all-happy"
	},
	// Destinations must already satisfy the mover's homophily.
	PresetComposition: func(m *ModelConfig) {
		m.Happiness = HappinessConfig{Policy: HappinessFraction, Threshold: 0.4}
		m.Eligibility = EligibilityConfig{Policy: EligibleComposition, Threshold: 0.4}
		m.Termination = "no-movement"
	},
	// Minority destinations need a stricter share; the majority may go anywhere.
	PresetSocioeconomic: func(m *ModelConfig) {
		m.Happiness = HappinessConfig{Policy: HappinessFraction, Threshold: 0.4}
		m.Eligibility = EligibilityConfig{Policy: EligibleSocioeconomic, MinorityThreshold: 0.5}
		m.Termination = "no-movement"
	},
	// Minority destinations need a contiguous run of minority neighbors.
	PresetRunLength: func(m *ModelConfig) {
		m.Happiness = HappinessConfig{Policy: HappinessFraction, Threshold: 0.4}
		m.Eligibility = EligibilityConfig{Policy: EligibleRunLength, MinorityRun: 3}
		m.Termination = "no-movement"
	},
}

// Preset returns the model settings of a named variant on a 20×20 torus
// with density 0.8 and a 20% minority.
func Preset(name string) (ModelConfig, error) {
	apply, ok := presets[name]
	if !ok {
		return ModelConfig{}, fmt.Errorf("%w: %q (valid: %v)", ErrUnknownPreset, name, PresetNames())
	}
	m := ModelConfig{
		Preset:     name,
		Width:      20,
		Height:     20,
		Torus:      true,
		Density:    0.8,
		MinorityPC: 0.2,
	}
	apply(&m)
	return m, nil
}

// ApplyPreset replaces the rule settings of m with those of the named
// variant, keeping its grid and population settings.
func (m *ModelConfig) ApplyPreset(name string) error {
	apply, ok := presets[name]
	if !ok {
		return fmt.Errorf("%w: %q (valid: %v)", ErrUnknownPreset, name, PresetNames())
	}
	m.Preset = name
	apply(m)
	return nil
}

// PresetNames lists the known presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
