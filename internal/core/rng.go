package core

import "math/rand/v2"

// RNG is a thin convenience wrapper around math/rand/v2 for deterministic seeding.
// An RNG is owned by exactly one engine or worker; it is not safe for
// concurrent use.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a deterministic RNG using the provided seed.
func NewRNG(seed int64) *RNG {
	return NewStream(seed, 0)
}

// NewStream creates a deterministic RNG for one of several independent
// streams sharing a base seed. Workers use distinct stream numbers.
func NewStream(seed int64, stream uint64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), stream))}
}

// Bool returns a random boolean value.
func (r *RNG) Bool() bool {
	return r.r.IntN(2) == 1
}

// IntN returns a uniform int in [0, n). It panics if n <= 0.
func (r *RNG) IntN(n int) int {
	return r.r.IntN(n)
}

// Float64 returns a uniform float64 in [0, 1).
func (r *RNG) Float64() float64 {
	return r.r.Float64()
}

// ExpFloat64 returns a rate-1 exponential variate.
func (r *RNG) ExpFloat64() float64 {
	return r.r.ExpFloat64()
}

// NormFloat64 returns a standard normal variate.
func (r *RNG) NormFloat64() float64 {
	return r.r.NormFloat64()
}

// Uint64 returns a uniform 64-bit value, used to derive child seeds.
func (r *RNG) Uint64() uint64 {
	return r.r.Uint64()
}
