package rules

import "github.com/talgya/segregation/internal/world"

// HasRun reports whether the ring contains k consecutive slots holding
// kind, reading the ring twice around so a run may cross from slot 7 back
// to slot 0. Absent slots break a run. k <= 0 always holds.
func HasRun(r world.Ring, kind world.Kind, k int) bool {
	if k <= 0 {
		return true
	}
	run := 0
	for i := 0; i < 2*len(r); i++ {
		if !r[i%len(r)].Is(kind) {
			run = 0
			continue
		}
		run++
		if run >= k {
			return true
		}
	}
	return false
}
