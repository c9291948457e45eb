// Package classical implements the Wolff cluster engine for classical spin
// models on an arbitrary weighted graph.
package classical

import (
	"errors"
	"math"
	"time"

	"spin-mc/internal/core"
	"spin-mc/internal/metrics"
	"spin-mc/internal/neighbor"
	"spin-mc/internal/spin"
)

const (
	// DefaultBurnIn is the number of discarded trials at the start of Run.
	DefaultBurnIn = 500
	// DefaultStepsPerTrial is the number of elementary steps between samples.
	DefaultStepsPerTrial = 16

	errorBins = 10
)

// ErrStackFull reports that a cluster outgrew the work stack. The flips applied
// before the overflow are kept.
var ErrStackFull = errors.New("classical: cluster stack full")

// Lattice holds spin values of model M on a fixed topology.
type Lattice[S, V any, M spin.Model[S, V]] struct {
	model     M
	data      []S
	neighbors []neighbor.List

	rng      *core.RNG
	observer core.Observer
	schedule core.Schedule

	stack   []int
	visited []bool
	stats   core.Stats

	axis    V
	hasAxis bool
}

// New builds a lattice of sites spins connected by topo. Every spin starts at
// a random value. Topology violations abort construction.
func New[S, V any, M spin.Model[S, V]](model M, sites int, topo neighbor.Provider, opts ...core.Option) (*Lattice[S, V, M], error) {
	if sites <= 0 {
		return nil, core.ErrNoSites
	}
	neighbors, err := neighbor.Build(sites, topo)
	if err != nil {
		return nil, err
	}
	s := core.Resolve(opts, core.Settings{
		Observer:      metrics.Default(),
		StackCapacity: sites,
		Schedule:      core.Schedule{BurnIn: DefaultBurnIn, StepsPerTrial: DefaultStepsPerTrial},
	}, time.Now().UnixNano())

	l := &Lattice[S, V, M]{
		model:     model,
		data:      make([]S, sites),
		neighbors: neighbors,
		rng:       s.RNG,
		observer:  s.Observer,
		schedule:  s.Schedule,
		stack:     make([]int, 0, s.StackCapacity),
		visited:   make([]bool, sites),
	}
	l.Zero()
	return l, nil
}

// NewIsing builds an Ising lattice.
func NewIsing(sites int, topo neighbor.Provider, opts ...core.Option) (*Lattice[int, struct{}, spin.Ising], error) {
	return New[int, struct{}](spin.Ising{}, sites, topo, opts...)
}

// NewXY builds an XY lattice.
func NewXY(sites int, topo neighbor.Provider, opts ...core.Option) (*Lattice[spin.Vec2, spin.Vec2, spin.XY], error) {
	return New[spin.Vec2, spin.Vec2](spin.XY{}, sites, topo, opts...)
}

// NewHeisenberg builds a Heisenberg lattice.
func NewHeisenberg(sites int, topo neighbor.Provider, opts ...core.Option) (*Lattice[spin.Vec3, spin.Vec3, spin.Heisenberg], error) {
	return New[spin.Vec3, spin.Vec3](spin.Heisenberg{}, sites, topo, opts...)
}

// Name returns the spin model name.
func (l *Lattice[S, V, M]) Name() string { return l.model.Name() }

// Sites returns the number of sites.
func (l *Lattice[S, V, M]) Sites() int { return len(l.data) }

// Values exposes the spin values. Callers must not retain the slice across
// Evolve calls.
func (l *Lattice[S, V, M]) Values() []S { return l.data }

// Neighbors returns the bonds of site.
func (l *Lattice[S, V, M]) Neighbors(site int) []neighbor.Entry {
	return l.neighbors[site].Entries()
}

// Stats returns cumulative step counters.
func (l *Lattice[S, V, M]) Stats() core.Stats { return l.stats }

// Zero draws a fresh random value for every site.
func (l *Lattice[S, V, M]) Zero() {
	for i := range l.data {
		l.data[i] = l.model.Start(l.rng)
	}
}

// Evolve performs count elementary cluster steps.
func (l *Lattice[S, V, M]) Evolve(beta float64, count int) {
	for i := 0; i < count; i++ {
		size, err := l.step(beta)
		l.stats.Steps++
		l.stats.Flips += size
		if err != nil {
			l.stats.Overflows++
			l.observer.CapacityExceeded(l.Name(), l.stats.Steps, cap(l.stack))
		}
		l.observer.StepDone(l.Name(), size)
	}
}

// step grows and flips one cluster and returns the number of flipped sites.
func (l *Lattice[S, V, M]) step(beta float64) (int, error) {
	clear(l.visited)
	l.stack = l.stack[:0]
	if cap(l.stack) == 0 {
		return 0, ErrStackFull
	}

	seed := l.rng.IntN(len(l.data))
	vec := l.model.RandomVec(l.rng)
	l.data[seed] = l.model.Flip(l.data[seed], vec, true)
	l.visited[seed] = true
	l.stack = append(l.stack, seed)
	flips := 1

	for len(l.stack) > 0 {
		site := l.stack[len(l.stack)-1]
		l.stack = l.stack[:len(l.stack)-1]
		own := l.model.Dot(l.data[site], vec)

		for _, e := range l.neighbors[site].Entries() {
			if l.visited[e.Site] {
				continue
			}
			other := l.model.Dot(l.data[e.Site], vec)
			p := 1 - math.Exp(math.Min(0, 2*beta*e.Strength*own*other))
			if l.rng.Float64() >= p {
				continue
			}
			if len(l.stack) == cap(l.stack) {
				return flips, ErrStackFull
			}
			l.data[e.Site] = l.model.Flip(l.data[e.Site], vec, true)
			l.visited[e.Site] = true
			l.stack = append(l.stack, e.Site)
			flips++
		}
	}
	return flips, nil
}

// OrderParam returns the norm of the mean spin.
func (l *Lattice[S, V, M]) OrderParam() float64 {
	sum := l.model.Zero()
	for _, s := range l.data {
		sum = l.model.Add(sum, s)
	}
	return l.model.Norm(sum) / float64(len(l.data))
}

// Run burns in, then samples the order parameter once per trial. The
// checkpoint may end sampling early.
func (l *Lattice[S, V, M]) Run(beta float64, trials int, cp core.Checkpoint) core.Report {
	start := time.Now()
	defer func() { metrics.ObserveRun(l.Name(), time.Since(start)) }()

	before := l.stats
	burnIn := min(l.schedule.BurnIn, max(trials, 0))
	l.Evolve(beta, l.schedule.StepsPerTrial*burnIn)

	samples := make([]float64, 0, max(trials-burnIn, 0))
	var sum float64
	for trial := burnIn; trial < trials; trial++ {
		l.Evolve(beta, l.schedule.StepsPerTrial)
		m := l.OrderParam()
		samples = append(samples, m)
		sum += m
		if trial == cp.Trial && sum/float64(len(samples)) > cp.Threshold {
			break
		}
	}

	rep := core.Summarize(samples, len(l.data), 1)
	rep.MagnetizationErr, rep.SusceptibilityErr = core.BinnedErrors(samples, len(l.data), 1, errorBins)
	if steps := l.stats.Steps - before.Steps; steps > 0 {
		rep.MeanClusterSize = float64(l.stats.Flips-before.Flips) / float64(steps)
	}
	rep.Overflows = l.stats.Overflows - before.Overflows
	return rep
}

// Shade writes each spin's projection onto a fixed axis, mapped to [0, 255],
// into dst. It is used for rendering.
func (l *Lattice[S, V, M]) Shade(dst []uint8) {
	if len(dst) != len(l.data) {
		return
	}
	if !l.hasAxis {
		l.axis = l.model.RandomVec(l.rng)
		l.hasAxis = true
	}
	for i, s := range l.data {
		p := l.model.Dot(s, l.axis)
		dst[i] = uint8(math.Round((max(-1, min(1, p)) + 1) * 127.5))
	}
}

func register[S, V any, M spin.Model[S, V]](model M) {
	core.Register(model.Name(), func(sites int, topo neighbor.Provider, opts ...core.Option) (core.Engine, error) {
		l, err := New[S, V](model, sites, topo, opts...)
		if err != nil {
			return nil, err
		}
		return l, nil
	})
}

func init() {
	register[int, struct{}](spin.Ising{})
	register[spin.Vec2, spin.Vec2](spin.XY{})
	register[spin.Vec3, spin.Vec3](spin.Heisenberg{})
}
