package spin

import "spin-mc/internal/core"

// Ising is the discrete ±1 variant. Its reflection vector carries no
// information because every flip is a sign inversion.
type Ising struct{}

// Name returns the variant identifier.
func (Ising) Name() string { return "ising" }

// Start returns +1 or -1 with equal probability.
func (Ising) Start(r *core.RNG) int {
	if r.Bool() {
		return 1
	}
	return -1
}

// Zero returns 0.
func (Ising) Zero() int { return 0 }

// RandomVec returns the empty placeholder vector.
func (Ising) RandomVec(*core.RNG) struct{} { return struct{}{} }

// Dot returns the spin itself.
func (Ising) Dot(s int, _ struct{}) float64 { return float64(s) }

// Flip negates s on success.
func (Ising) Flip(s int, _ struct{}, success bool) int {
	if !success {
		return s
	}
	return -s
}

// Add returns sum + s.
func (Ising) Add(sum, s int) int { return sum + s }

// Norm returns |s|.
func (Ising) Norm(s int) float64 {
	if s < 0 {
		return float64(-s)
	}
	return float64(s)
}
