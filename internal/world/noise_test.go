package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseField_RangeAndDeterminism(t *testing.T) {
	for _, torus := range []bool{true, false} {
		a := NewNoiseField(42, 16, 12, torus)
		b := NewNoiseField(42, 16, 12, torus)
		for x := 0; x < 16; x++ {
			for y := 0; y < 12; y++ {
				c := Coord{x, y}
				v := a.At(c)
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
				assert.Equal(t, v, b.At(c))
			}
		}
	}
}
