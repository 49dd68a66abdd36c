package rules

import "fmt"

// Termination selects when a run halts.
type Termination uint8

const (
	UntilAllHappy Termination = iota // every agent was happy this step
	UntilStill                       // no agent relocated this step
	UntilEither                      // whichever comes first
)

// ParseTermination maps a config name to a Termination.
func ParseTermination(s string) (Termination, error) {
	switch s {
	case "all-happy":
		return UntilAllHappy, nil
	case "no-movement":
		return UntilStill, nil
	case "either":
		return UntilEither, nil
	}
	return UntilAllHappy, fmt.Errorf("rules: unknown termination %q", s)
}

// String returns the config name.
func (t Termination) String() string {
	switch t {
	case UntilAllHappy:
		return "all-happy"
	case UntilStill:
		return "no-movement"
	case UntilEither:
		return "either"
	}
	return fmt.Sprintf("termination(%d)", uint8(t))
}

// Outcome is what a finished step reports to the termination check.
type Outcome struct {
	Step      uint64 // Steps completed, including this one
	Agents    int
	Happy     int
	Movements int
}

// Halt reports whether the run should stop after the step described by o.
func (t Termination) Halt(o Outcome) bool {
	allHappy := o.Happy == o.Agents
	still := o.Step >= 1 && o.Movements == 0
	switch t {
	case UntilStill:
		return still
	case UntilEither:
		return allHappy || still
	default:
		return allHappy
	}
}
