// Package spin defines the spin-value capability used by the cluster engines
// and its Ising, XY and Heisenberg variants.
//
// A Model is a stateless strategy over a value type S and a reflection
// vector type V. Engines are generic over the Model so every variant is
// monomorphized at compile time.
package spin

import "spin-mc/internal/core"

// Model describes how a spin variant participates in cluster moves and in
// averaging.
type Model[S, V any] interface {
	// Name identifies the variant.
	Name() string
	// Start returns a spin drawn uniformly from the state space.
	Start(r *core.RNG) S
	// Zero returns the additive identity used to accumulate sums.
	Zero() S
	// RandomVec returns the reflection vector of one elementary step.
	RandomVec(r *core.RNG) V
	// Dot projects s onto v.
	Dot(s S, v V) float64
	// Flip reflects s through the hyperplane orthogonal to v when success is
	// true and returns s untouched otherwise.
	Flip(s S, v V, success bool) S
	// Add returns sum + s.
	Add(sum, s S) S
	// Norm returns the magnitude of s.
	Norm(s S) float64
}

var (
	_ Model[int, struct{}] = Ising{}
	_ Model[Vec2, Vec2]    = XY{}
	_ Model[Vec3, Vec3]    = Heisenberg{}
)
