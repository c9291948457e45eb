// Package quantum implements a continuous imaginary-time cluster engine for
// the transverse-field Ising model on an arbitrary weighted graph.
//
// Each site carries a worldline on the periodic interval [0, L3), stored as
// the sorted positions of its domain walls. The spin just above τ = 0 is up;
// every wall at or below τ flips it.
//
// A site is claimed by at most one bridge pass per elementary step. This is a
// known approximation of the exact worldline cluster algorithm, which may
// revisit a site; it bounds the work per step.
package quantum

import (
	"errors"
	"math"
	"slices"
	"sort"
	"time"

	"spin-mc/internal/core"
	"spin-mc/internal/metrics"
	"spin-mc/internal/neighbor"
)

const (
	// DefaultStackCapacity bounds the points queued during one step.
	DefaultStackCapacity = 256_000
	// DefaultBurnIn is the number of discarded trials at the start of Run.
	DefaultBurnIn = 4
	// DefaultStepsPerTrial is the number of elementary steps between samples.
	DefaultStepsPerTrial = 8
	// Epsilon separates new domain walls from existing boundaries.
	Epsilon = 1e-5

	name = "quantum"
)

// ErrStackFull reports that a cluster outgrew the work stack. Worldline edits
// made before the overflow are kept.
var ErrStackFull = errors.New("quantum: cluster stack full")

type point struct {
	site int
	tau  float64
}

// QLattice is the worldline state of every site plus the reusable scratch
// buffers of the cluster step.
type QLattice struct {
	length    float64
	data      [][]float64
	neighbors []neighbor.List

	rng      *core.RNG
	observer core.Observer
	schedule core.Schedule

	stack   []point
	visited []bool
	stats   core.Stats
}

// New builds a lattice of sites worldlines connected by topo, all in the
// uniform spin-up state.
func New(sites int, topo neighbor.Provider, opts ...core.Option) (*QLattice, error) {
	if sites <= 0 {
		return nil, core.ErrNoSites
	}
	neighbors, err := neighbor.Build(sites, topo)
	if err != nil {
		return nil, err
	}
	s := core.Resolve(opts, core.Settings{
		Observer:      metrics.Default(),
		StackCapacity: DefaultStackCapacity,
		Schedule:      core.Schedule{BurnIn: DefaultBurnIn, StepsPerTrial: DefaultStepsPerTrial},
	}, time.Now().UnixNano())

	return &QLattice{
		length:    2 * math.Sqrt(float64(sites)),
		data:      make([][]float64, sites),
		neighbors: neighbors,
		rng:       s.RNG,
		observer:  s.Observer,
		schedule:  s.Schedule,
		stack:     make([]point, s.StackCapacity),
		visited:   make([]bool, sites),
	}, nil
}

// Name returns the engine identifier.
func (q *QLattice) Name() string { return name }

// Sites returns the number of worldlines.
func (q *QLattice) Sites() int { return len(q.data) }

// Length returns the imaginary-time extent L3.
func (q *QLattice) Length() float64 { return q.length }

// Interfaces returns the domain walls of site. The slice must not be modified.
func (q *QLattice) Interfaces(site int) []float64 { return q.data[site] }

// Stats returns cumulative step counters.
func (q *QLattice) Stats() core.Stats { return q.stats }

// Zero removes every domain wall. Backing arrays are kept for reuse.
func (q *QLattice) Zero() {
	for i := range q.data {
		q.data[i] = q.data[i][:0]
	}
}

// below returns how many walls of col lie at or below tau.
func below(col []float64, tau float64) int {
	return sort.Search(len(col), func(i int) bool { return col[i] > tau })
}

// spinAt reports whether the worldline col is up at tau.
func spinAt(col []float64, tau float64) bool {
	return below(col, tau)%2 == 0
}

// clampDraw shortens a draw that would reach a queued point gap away, so the
// new wall stays strictly on this side of it. Points behind (gap <= 0) or out
// of reach leave the draw unchanged.
func clampDraw(draw, gap float64) float64 {
	if gap <= 0 || gap >= draw {
		return draw
	}
	if gap > 2*Epsilon {
		return gap - Epsilon
	}
	return gap / 2
}

// Evolve performs count elementary cluster steps.
func (q *QLattice) Evolve(beta float64, count int) {
	for i := 0; i < count; i++ {
		size, err := q.step(beta)
		q.stats.Steps++
		q.stats.Flips += size
		if err != nil {
			q.stats.Overflows++
			q.observer.CapacityExceeded(name, q.stats.Steps, len(q.stack))
		}
		q.observer.StepDone(name, size)
	}
}

// step grows one cluster from a random point and returns the number of
// points it queued.
func (q *QLattice) step(beta float64) (int, error) {
	clear(q.visited)
	q.stack[0] = point{site: q.rng.IntN(len(q.data)), tau: q.rng.Float64() * q.length}
	top := 0
	queued := 1

	for top >= 0 {
		p := q.stack[top]
		next := top - 1
		col := q.data[p.site]

		// Enclosing walls: col[left] <= τ < col[right]. left == -1 and
		// right == len(col) stand for the open ends at 0 and L3.
		right := below(col, p.tau)
		left := right - 1
		up := right%2 == 0
		dl := p.tau
		if left >= 0 {
			dl = p.tau - col[left]
		}
		dr := q.length - p.tau
		if right < len(col) {
			dr = col[right] - p.tau
		}

		lr := max(q.rng.ExpFloat64(), Epsilon)
		ll := max(q.rng.ExpFloat64(), Epsilon)
		// Never cut past a point of this site that is still queued.
		for _, o := range q.stack[:top] {
			if o.site == p.site {
				lr = clampDraw(lr, o.tau-p.tau)
				ll = clampDraw(ll, p.tau-o.tau)
			}
		}

		cr, cl := dr, dl
		if lr < dr-Epsilon {
			cr = lr
			col = slices.Insert(col, right, p.tau+lr)
		} else if right < len(col) {
			col = slices.Delete(col, right, right+1)
		}
		switch {
		case ll < dl-Epsilon:
			cl = ll
			col = slices.Insert(col, left+1, p.tau-ll)
		case left >= 0:
			col = slices.Delete(col, left, left+1)
		default:
			// The segment reaches τ = 0: flip the boundary spin.
			col = slices.Insert(col, 0, 0)
		}
		q.data[p.site] = col

		width := cl + cr
		origin := p.tau - cl
		for _, e := range q.neighbors[p.site].Entries() {
			if q.visited[e.Site] {
				continue
			}
			rate := 2 * beta * e.Strength
			if rate <= 0 {
				continue
			}
			other := q.data[e.Site]
			for offset := q.rng.ExpFloat64() / rate; offset < width; offset += q.rng.ExpFloat64() / rate {
				tau := origin + offset
				if spinAt(other, tau) != up {
					continue
				}
				if next+1 >= len(q.stack) {
					return queued, ErrStackFull
				}
				next++
				q.stack[next] = point{site: e.Site, tau: tau}
				q.visited[e.Site] = true
				queued++
			}
		}
		top = next
	}
	return queued, nil
}

// OrderParam returns the absolute length-weighted mean spin over all
// worldlines, normalized to [0, 1].
func (q *QLattice) OrderParam() float64 {
	var total float64
	for _, col := range q.data {
		up := true
		last := 0.0
		for _, wall := range col {
			if up {
				total += wall - last
			} else {
				total -= wall - last
			}
			last = wall
			up = !up
		}
		if up {
			total += q.length - last
		} else {
			total -= q.length - last
		}
	}
	return math.Abs(total) / float64(len(q.data)) / q.length
}

// MeanInterfaces returns the average number of domain walls per site.
func (q *QLattice) MeanInterfaces() float64 {
	n := 0
	for _, col := range q.data {
		n += len(col)
	}
	return float64(n) / float64(len(q.data))
}

// Run burns in, then samples the order parameter once per trial. The
// susceptibility is scaled by beta.
func (q *QLattice) Run(beta float64, trials int, cp core.Checkpoint) core.Report {
	start := time.Now()
	defer func() { metrics.ObserveRun(name, time.Since(start)) }()

	before := q.stats
	burnIn := min(q.schedule.BurnIn, max(trials, 0))
	q.Evolve(beta, q.schedule.StepsPerTrial*burnIn)

	samples := make([]float64, 0, max(trials-burnIn, 0))
	var sum float64
	for trial := burnIn; trial < trials; trial++ {
		q.Evolve(beta, q.schedule.StepsPerTrial)
		m := q.OrderParam()
		samples = append(samples, m)
		sum += m
		if trial == cp.Trial && sum/float64(len(samples)) > cp.Threshold {
			break
		}
	}

	rep := core.Summarize(samples, len(q.data), beta)
	if steps := q.stats.Steps - before.Steps; steps > 0 {
		rep.MeanClusterSize = float64(q.stats.Flips-before.Flips) / float64(steps)
	}
	rep.MeanInterfaces = q.MeanInterfaces()
	rep.Overflows = q.stats.Overflows - before.Overflows
	return rep
}

// Shade writes the fraction of imaginary time each site spends up, mapped to
// [0, 255], into dst. It is used for rendering.
func (q *QLattice) Shade(dst []uint8) {
	if len(dst) != len(q.data) {
		return
	}
	for i, col := range q.data {
		var upTime float64
		up := true
		last := 0.0
		for _, wall := range col {
			if up {
				upTime += wall - last
			}
			last = wall
			up = !up
		}
		if up {
			upTime += q.length - last
		}
		dst[i] = uint8(math.Round(upTime / q.length * 255))
	}
}

func init() {
	core.Register(name, func(sites int, topo neighbor.Provider, opts ...core.Option) (core.Engine, error) {
		q, err := New(sites, topo, opts...)
		if err != nil {
			return nil, err
		}
		return q, nil
	})
}
