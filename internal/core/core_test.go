package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spin-mc/internal/neighbor"
)

type countingObserver struct{ steps int }

func (c *countingObserver) StepDone(string, int)              { c.steps++ }
func (c *countingObserver) CapacityExceeded(string, int, int) {}

func TestResolveDefaults(t *testing.T) {
	defaults := Settings{StackCapacity: 10, Schedule: Schedule{BurnIn: 3, StepsPerTrial: 5}}

	s := Resolve(nil, defaults, 1)
	require.NotNil(t, s.RNG)
	assert.Equal(t, NopObserver{}, s.Observer)
	assert.Equal(t, 10, s.StackCapacity)
	assert.Equal(t, Schedule{BurnIn: 3, StepsPerTrial: 5}, s.Schedule)

	obs := &countingObserver{}
	s = Resolve([]Option{nil, WithObserver(obs), WithStackCapacity(-4)}, defaults, 1)
	assert.Same(t, obs, s.Observer)
	assert.Equal(t, 10, s.StackCapacity, "non-positive capacity falls back")
}

func TestResolveSchedule(t *testing.T) {
	defaults := Settings{Schedule: Schedule{BurnIn: 3, StepsPerTrial: 5}}

	s := Resolve([]Option{WithSchedule(Schedule{BurnIn: 0, StepsPerTrial: 2})}, defaults, 1)
	assert.Equal(t, Schedule{BurnIn: 0, StepsPerTrial: 2}, s.Schedule, "explicit zero burn-in is kept")

	s = Resolve([]Option{WithSchedule(Schedule{BurnIn: -1, StepsPerTrial: 0})}, defaults, 1)
	assert.Equal(t, Schedule{BurnIn: 3, StepsPerTrial: 5}, s.Schedule)
}

func TestResolveRNG(t *testing.T) {
	r := NewRNG(9)
	s := Resolve([]Option{WithRNG(r)}, Settings{}, 1)
	assert.Same(t, r, s.RNG)

	a := Resolve([]Option{WithSeed(42)}, Settings{}, 1)
	b := Resolve(nil, Settings{}, 42)
	assert.Equal(t, a.RNG.Uint64(), b.RNG.Uint64())
}

func TestStreams(t *testing.T) {
	a, b := NewRNG(7), NewStream(7, 0)
	for range 16 {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}

	c, d := NewStream(7, 1), NewStream(7, 2)
	same := 0
	for range 16 {
		if c.Uint64() == d.Uint64() {
			same++
		}
	}
	assert.Less(t, same, 16)

	r := NewRNG(3)
	for range 1000 {
		f := r.Float64()
		assert.True(t, f >= 0 && f < 1)
		assert.GreaterOrEqual(t, r.ExpFloat64(), 0.0)
		n := r.IntN(5)
		assert.True(t, n >= 0 && n < 5)
	}
}

func TestGrid(t *testing.T) {
	assert.Equal(t, Grid{W: 1, H: 1}, NewGrid(0, -1))

	g := NewGrid(4, 3)
	assert.Equal(t, 12, g.Sites())
	assert.Equal(t, 7, g.Index(3, 1))
	x, y := g.Coords(7)
	assert.Equal(t, []int{3, 1}, []int{x, y})
	assert.Equal(t, 3, g.Neighbor(0, -1, 0))
	assert.Equal(t, 8, g.Neighbor(0, 0, -1))
	assert.Equal(t, 0, g.Neighbor(11, 1, 1))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Report{}, Summarize(nil, 4, 1))

	r := Summarize([]float64{1, 1, 1}, 4, 1)
	assert.Equal(t, 1.0, r.Magnetization)
	assert.Equal(t, 0.0, r.Susceptibility)
	assert.Equal(t, 3, r.Samples)

	r = Summarize([]float64{0, 1}, 2, 0.5)
	assert.InDelta(t, 0.5, r.Magnetization, 1e-12)
	assert.InDelta(t, 0.25, r.Susceptibility, 1e-12)
}

func TestBinnedErrors(t *testing.T) {
	magErr, susErr := BinnedErrors([]float64{0, 0, 1, 1}, 1, 1, 2)
	assert.InDelta(t, 0.5, magErr, 1e-12)
	assert.Equal(t, 0.0, susErr)

	magErr, susErr = BinnedErrors([]float64{0, 1, 0}, 1, 1, 2)
	assert.Zero(t, magErr)
	assert.Zero(t, susErr)

	magErr, _ = BinnedErrors([]float64{1, 1, 1, 1}, 1, 1, 1)
	assert.Zero(t, magErr)
}

func TestFixedStep(t *testing.T) {
	t0 := time.Unix(100, 0)
	now := t0
	fs := NewFixedStep(10)
	fs.now = func() time.Time { return now }

	assert.Equal(t, 1, fs.Due(5), "first call owes one step")
	now = now.Add(250 * time.Millisecond)
	assert.Equal(t, 2, fs.Due(5))
	now = now.Add(time.Second)
	assert.Equal(t, 5, fs.Due(5), "catch-up is capped")
	now = now.Add(50 * time.Millisecond)
	assert.Equal(t, 0, fs.Due(5), "capped burst drops the backlog")
}

func TestParameterSnapshot(t *testing.T) {
	snap := ParameterSnapshot{Groups: []ParameterGroup{
		{Name: "Engine", Params: []Parameter{StringParam("model", "Model", "ising"), IntParam("sites", "Sites", 16)}},
		{Name: "Sweep", Params: []Parameter{FloatParam("beta", "Beta", 0.5), Int64Param("seed", "Seed", -3)}},
	}}

	p, ok := snap.Lookup("beta")
	require.True(t, ok)
	assert.Equal(t, "0.5", p.Value)
	assert.Equal(t, ParamTypeFloat, p.Type)

	p, ok = snap.Lookup("seed")
	require.True(t, ok)
	assert.Equal(t, "-3", p.Value)

	_, ok = snap.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	Register("", func(int, neighbor.Provider, ...Option) (Engine, error) { return nil, nil })
	Register("core-nil", nil)
	_, ok := Engines()[""]
	assert.False(t, ok)
	_, ok = Engines()["core-nil"]
	assert.False(t, ok)

	Register("core-test", func(sites int, _ neighbor.Provider, _ ...Option) (Engine, error) {
		if sites == 0 {
			return nil, ErrNoSites
		}
		return nil, nil
	})
	assert.Contains(t, EngineNames(), "core-test")
	assert.IsIncreasing(t, EngineNames())

	_, err := New("core-test", 0, nil)
	assert.ErrorIs(t, err, ErrNoSites)

	_, err = New("no-such-engine", 4, nil)
	assert.ErrorIs(t, err, ErrUnknownEngine)
	assert.Contains(t, err.Error(), "no-such-engine")
}
