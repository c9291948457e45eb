package sweep

import (
	"context"
	"io"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "spin-mc/internal/classical"
	"spin-mc/internal/core"
	"spin-mc/internal/logging"
	"spin-mc/internal/neighbor"
	"spin-mc/internal/store"
	"spin-mc/internal/topology"
)

// stepEngine is ordered above a fixed beta and records what it was asked.
type stepEngine struct {
	critical    float64
	zeros       int
	checkpoints []core.Checkpoint
}

func (e *stepEngine) Name() string        { return "step" }
func (e *stepEngine) Sites() int          { return 1 }
func (e *stepEngine) Zero()               { e.zeros++ }
func (e *stepEngine) Evolve(float64, int) {}
func (e *stepEngine) OrderParam() float64 { return 0 }
func (e *stepEngine) Stats() core.Stats   { return core.Stats{} }
func (e *stepEngine) Run(beta float64, _ int, cp core.Checkpoint) core.Report {
	e.checkpoints = append(e.checkpoints, cp)
	if beta > e.critical {
		return core.Report{Magnetization: 0.9, Susceptibility: 1, Samples: 1}
	}
	return core.Report{Magnetization: 0.01, Susceptibility: 2, Samples: 1}
}

func TestLinspaces(t *testing.T) {
	assert.InDeltaSlice(t, []float64{0, 0.25, 0.5, 0.75, 1}, Linspace(0, 1, 5), 1e-12)
	assert.Equal(t, []float64{3}, Linspace(3, 9, 1))
	assert.Nil(t, Linspace(0, 1, 0))

	assert.InDeltaSlice(t, []float64{0.25, 0.5, 0.75}, LinspaceEx(0, 1, 3), 1e-12)
	assert.Equal(t, []float64{2}, LinspaceEx(2, 5, 1))

	// Temperatures 4, 2.5, 1 from hot to cold.
	assert.InDeltaSlice(t, []float64{0.25, 0.4, 1}, ReciprocalLinspace(1, 4, 3), 1e-12)
}

func TestOnePass(t *testing.T) {
	e := &stepEngine{critical: 0.44}
	s, err := OnePass(context.Background(), e, Temperatures{Start: 0.5, End: 4, Count: 8}, 1000)
	require.NoError(t, err)
	assert.Equal(t, 8, s.Len())
	assert.Equal(t, 8, e.zeros)
	for _, cp := range e.checkpoints {
		assert.Equal(t, core.Checkpoint{Trial: 100, Threshold: 0.5}, cp)
	}
	assert.InDelta(t, 0.25, s.Betas[0], 1e-12)
	assert.InDelta(t, 2, s.Betas[7], 1e-12)
}

func TestOnePassHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := OnePass(ctx, &stepEngine{}, Temperatures{Start: 1, End: 2, Count: 4}, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.Len())
}

func TestSearchNarrowsWindow(t *testing.T) {
	e := &stepEngine{critical: 0.44}
	s, err := Search(context.Background(), e, Window{Bottom: 0.1, Top: 1, Layers: 3, PerLayer: 10}, 400)
	require.NoError(t, err)
	require.Equal(t, 30, s.Len())
	for _, beta := range s.Betas[10:] {
		assert.Greater(t, beta, 0.4-1e-9)
		assert.Less(t, beta, 0.5+1e-9)
	}
	assert.Equal(t, core.Checkpoint{Trial: 200, Threshold: 0.5}, e.checkpoints[0])
}

func TestCriticalTemperature(t *testing.T) {
	s := store.Series{
		Betas:          []float64{0.25, 0.5, 1},
		Magnetizations: []float64{0, 0.2, 1},
	}
	tc, ok := CriticalTemperature(s)
	require.True(t, ok)
	assert.InDelta(t, 1.625, tc, 1e-12)

	tc, ok = CriticalTemperature(store.Series{Betas: []float64{1}, Magnetizations: []float64{1}})
	assert.False(t, ok)
	assert.True(t, math.IsNaN(tc))

	_, ok = CriticalTemperature(store.Series{Betas: []float64{1, 2}, Magnetizations: []float64{0.5, 0.5}})
	assert.False(t, ok, "flat curve has no crossing")
}

func rectBatch(t *testing.T, dir string) *Batch {
	t.Helper()
	return &Batch{
		Model: "ising",
		Label: "rect",
		Topology: func(a float64) (int, neighbor.Provider, error) {
			return topology.Rect(6, 6, a)
		},
		Anisotropies: []float64{0.5, 1},
		Drive:        OnePassDriver(Temperatures{Start: 0.5, End: 4, Count: 4}, 60),
		Seed:         42,
		Workers:      2,
		OutputDir:    dir,
		Options: []core.Option{
			core.WithObserver(core.NopObserver{}),
			core.WithSchedule(core.Schedule{BurnIn: 10, StepsPerTrial: 4}),
		},
		Log: logging.New("error", io.Discard),
	}
}

func TestBatchRunsJobsInOrder(t *testing.T) {
	dir := t.TempDir()
	results, err := rectBatch(t, dir).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "rect-ising-0.50000000", results[0].Job.Name)
	assert.Equal(t, "rect-ising-1.00000000", results[1].Job.Name)
	assert.NotEqual(t, results[0].Job.ID, results[1].Job.ID)
	for _, r := range results {
		assert.Equal(t, 4, r.Series.Len())
		assert.Equal(t, 36, r.Summary.Sites)
		assert.FileExists(t, r.Path)

		loaded, err := store.Load(r.Path)
		require.NoError(t, err)
		assert.Equal(t, r.Series.Sorted(), loaded)

		sum, err := store.ReadSummary(dir + string(os.PathSeparator) + r.Job.Name + ".yaml")
		require.NoError(t, err)
		assert.Equal(t, r.Job.ID, sum.ID)
	}
}

func TestBatchIsDeterministicForSeed(t *testing.T) {
	a, err := rectBatch(t, "").Run(context.Background())
	require.NoError(t, err)
	b, err := rectBatch(t, "").Run(context.Background())
	require.NoError(t, err)
	for i := range a {
		assert.Equal(t, a[i].Series, b[i].Series)
		assert.Empty(t, a[i].Path)
	}
}

func TestBatchPropagatesErrors(t *testing.T) {
	b := rectBatch(t, "")
	b.Model = "potts"
	_, err := b.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrUnknownEngine)

	b = rectBatch(t, "")
	b.Topology = func(float64) (int, neighbor.Provider, error) { return topology.Rect(2, 2, 1) }
	_, err = b.Run(context.Background())
	assert.ErrorIs(t, err, topology.ErrBadShape)
}
