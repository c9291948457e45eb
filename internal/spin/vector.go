package spin

import (
	"math"

	"spin-mc/internal/core"
)

// Vec2 is a planar unit vector.
type Vec2 [2]float64

// Vec3 is a unit vector in three dimensions.
type Vec3 [3]float64

// XY is the planar rotor variant.
type XY struct{}

// Name returns the variant identifier.
func (XY) Name() string { return "xy" }

// Start returns an isotropic random unit vector.
func (m XY) Start(r *core.RNG) Vec2 { return m.RandomVec(r) }

// Zero returns the zero vector.
func (XY) Zero() Vec2 { return Vec2{} }

// RandomVec draws normalized Gaussian components.
func (XY) RandomVec(r *core.RNG) Vec2 {
	for {
		v := Vec2{r.NormFloat64(), r.NormFloat64()}
		if n := math.Hypot(v[0], v[1]); n > 0 {
			return Vec2{v[0] / n, v[1] / n}
		}
	}
}

// Dot returns s·v.
func (XY) Dot(s, v Vec2) float64 { return s[0]*v[0] + s[1]*v[1] }

// Flip reflects s through the line orthogonal to v and renormalizes.
func (m XY) Flip(s, v Vec2, success bool) Vec2 {
	if !success {
		return s
	}
	d := 2 * m.Dot(s, v)
	s[0] -= d * v[0]
	s[1] -= d * v[1]
	n := math.Hypot(s[0], s[1])
	if n == 0 {
		return s
	}
	return Vec2{s[0] / n, s[1] / n}
}

// Add returns the component-wise sum.
func (XY) Add(sum, s Vec2) Vec2 { return Vec2{sum[0] + s[0], sum[1] + s[1]} }

// Norm returns the Euclidean length.
func (XY) Norm(s Vec2) float64 { return math.Hypot(s[0], s[1]) }

// Heisenberg is the three-component classical spin variant.
type Heisenberg struct{}

// Name returns the variant identifier.
func (Heisenberg) Name() string { return "heisenberg" }

// Start returns an isotropic random unit vector.
func (m Heisenberg) Start(r *core.RNG) Vec3 { return m.RandomVec(r) }

// Zero returns the zero vector.
func (Heisenberg) Zero() Vec3 { return Vec3{} }

// RandomVec draws normalized Gaussian components, which is uniform on the sphere.
func (m Heisenberg) RandomVec(r *core.RNG) Vec3 {
	for {
		v := Vec3{r.NormFloat64(), r.NormFloat64(), r.NormFloat64()}
		if n := m.Norm(v); n > 0 {
			return Vec3{v[0] / n, v[1] / n, v[2] / n}
		}
	}
}

// Dot returns s·v.
func (Heisenberg) Dot(s, v Vec3) float64 { return s[0]*v[0] + s[1]*v[1] + s[2]*v[2] }

// Flip reflects s through the plane orthogonal to v and renormalizes.
func (m Heisenberg) Flip(s, v Vec3, success bool) Vec3 {
	if !success {
		return s
	}
	d := 2 * m.Dot(s, v)
	for i := range s {
		s[i] -= d * v[i]
	}
	n := m.Norm(s)
	if n == 0 {
		return s
	}
	return Vec3{s[0] / n, s[1] / n, s[2] / n}
}

// Add returns the component-wise sum.
func (Heisenberg) Add(sum, s Vec3) Vec3 {
	return Vec3{sum[0] + s[0], sum[1] + s[1], sum[2] + s[2]}
}

// Norm returns the Euclidean length.
func (Heisenberg) Norm(s Vec3) float64 {
	return math.Sqrt(s[0]*s[0] + s[1]*s[1] + s[2]*s[2])
}
