package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// NoiseField is a smooth scalar field over grid cells, normalized to [0, 1].
// The spawner uses it to bias the initial minority share per cell.
type NoiseField struct {
	noise       opensimplex.Noise
	frequency   float64
	octaves     int
	persistence float64
	width       float64
	height      float64
	torus       bool
}

// NewNoiseField creates a field for a width×height grid. On a torus the
// field is sampled on a circle per axis so opposite edges match.
func NewNoiseField(seed int64, width, height int, torus bool) *NoiseField {
	return &NoiseField{
		noise:       opensimplex.NewNormalized(seed),
		frequency:   0.12,
		octaves:     3,
		persistence: 0.5,
		width:       float64(width),
		height:      float64(height),
		torus:       torus,
	}
}

// At returns the field value at c.
func (f *NoiseField) At(c Coord) float64 {
	x, y := float64(c.X), float64(c.Y)
	if !f.torus {
		return octaveNoise2(f.noise, x, y, f.octaves, f.frequency, f.persistence)
	}
	// Map each axis onto a circle whose circumference is the axis length,
	// then sample 4-D noise so the field tiles seamlessly.
	ax := 2 * math.Pi * x / f.width
	ay := 2 * math.Pi * y / f.height
	rx := f.width / (2 * math.Pi)
	ry := f.height / (2 * math.Pi)
	return octaveNoise4(f.noise,
		rx*math.Cos(ax), rx*math.Sin(ax), ry*math.Cos(ay), ry*math.Sin(ay),
		f.octaves, f.frequency, f.persistence)
}

// octaveNoise2 layers multiple frequencies of 2-D noise.
func octaveNoise2(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

func octaveNoise4(noise opensimplex.Noise, x, y, z, w float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval4(x*frequency, y*frequency, z*frequency, w*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
