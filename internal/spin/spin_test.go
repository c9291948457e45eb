package spin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spin-mc/internal/core"
)

func TestIsingFlip(t *testing.T) {
	var m Ising
	assert.Equal(t, -1, m.Flip(1, struct{}{}, true))
	assert.Equal(t, 1, m.Flip(1, struct{}{}, false))
	assert.Equal(t, 1.0, m.Norm(-1))
	assert.Equal(t, -1.0, m.Dot(-1, m.RandomVec(nil)))
}

func TestIsingStartIsBalanced(t *testing.T) {
	var m Ising
	r := core.NewRNG(3)
	sum := m.Zero()
	const n = 20000
	for i := 0; i < n; i++ {
		s := m.Start(r)
		require.True(t, s == 1 || s == -1)
		sum = m.Add(sum, s)
	}
	assert.Less(t, math.Abs(float64(sum))/n, 0.03)
}

func TestXYReflection(t *testing.T) {
	var m XY
	r := core.NewRNG(11)
	for i := 0; i < 100; i++ {
		s := m.Start(r)
		v := m.RandomVec(r)
		assert.InDelta(t, 1, m.Norm(s), 1e-12)
		assert.InDelta(t, 1, m.Norm(v), 1e-12)

		f := m.Flip(s, v, true)
		assert.InDelta(t, 1, m.Norm(f), 1e-12)
		assert.InDelta(t, -m.Dot(s, v), m.Dot(f, v), 1e-9, "reflection negates the projection")
		back := m.Flip(f, v, true)
		assert.InDelta(t, s[0], back[0], 1e-9)
		assert.InDelta(t, s[1], back[1], 1e-9)

		assert.Equal(t, s, m.Flip(s, v, false))
	}
}

func TestHeisenbergReflection(t *testing.T) {
	var m Heisenberg
	r := core.NewRNG(12)
	for i := 0; i < 100; i++ {
		s := m.Start(r)
		v := m.RandomVec(r)
		f := m.Flip(s, v, true)
		assert.InDelta(t, 1, m.Norm(f), 1e-12)
		assert.InDelta(t, -m.Dot(s, v), m.Dot(f, v), 1e-9)
		assert.Equal(t, s, m.Flip(s, v, false))
	}
}

func TestRandomVecIsIsotropic(t *testing.T) {
	var m Heisenberg
	r := core.NewRNG(5)
	sum := m.Zero()
	const n = 20000
	for i := 0; i < n; i++ {
		sum = m.Add(sum, m.RandomVec(r))
	}
	assert.Less(t, m.Norm(sum)/n, 0.03)
}
