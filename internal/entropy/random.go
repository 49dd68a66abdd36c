// Package entropy provides the seeded random source behind every stochastic
// choice in a run: initial occupancy, kind assignment, activation order,
// and destination draws. A run is deterministic given its seed.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
)

// streamSalt separates the PCG stream from the seed itself.
const streamSalt = 0x9e3779b97f4a7c15

// New returns a PCG generator for seed.
func New(seed uint64) *mrand.Rand {
	return mrand.New(mrand.NewPCG(seed, seed^streamSalt))
}

// Seed returns a fresh non-zero seed from crypto/rand. Used when a run is
// configured with seed 0.
func Seed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		return streamSalt
	}
	s := binary.LittleEndian.Uint64(buf[:])
	if s == 0 {
		return streamSalt
	}
	return s
}

// Derive returns the seed of the i-th child run of base (splitmix64), so a
// batch sweep is reproducible from a single base seed.
func Derive(base uint64, i int) uint64 {
	z := base + uint64(i+1)*streamSalt
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Resolve returns seed, or a fresh one when seed is 0.
func Resolve(seed uint64) uint64 {
	if seed == 0 {
		return Seed()
	}
	return seed
}
