package sweep

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"spin-mc/internal/core"
	"spin-mc/internal/logging"
	"spin-mc/internal/metrics"
	"spin-mc/internal/neighbor"
	"spin-mc/internal/store"
)

// Driver runs one sweep on a freshly built engine.
type Driver func(ctx context.Context, e core.Engine) (store.Series, error)

// OnePassDriver wraps OnePass.
func OnePassDriver(temps Temperatures, trials int) Driver {
	return func(ctx context.Context, e core.Engine) (store.Series, error) {
		return OnePass(ctx, e, temps, trials)
	}
}

// SearchDriver wraps Search.
func SearchDriver(w Window, trials int) Driver {
	return func(ctx context.Context, e core.Engine) (store.Series, error) {
		return Search(ctx, e, w, trials)
	}
}

// TopologyFunc builds the lattice for one anisotropy value.
type TopologyFunc func(anisotropy float64) (int, neighbor.Provider, error)

// Job is one engine run inside a batch.
type Job struct {
	ID         string
	Index      int
	Name       string
	Anisotropy float64
}

// Result is the outcome of a finished job.
type Result struct {
	Job     Job
	Series  store.Series
	Summary store.Summary
	// Path is the saved series file, empty when the batch has no output dir.
	Path string
}

// Batch runs one job per anisotropy value on a bounded pool of workers. Every
// job builds its own topology and engine and draws from its own RNG stream,
// so jobs share nothing mutable.
type Batch struct {
	Model        string
	Label        string
	Topology     TopologyFunc
	Anisotropies []float64
	Drive        Driver
	Seed         int64
	Workers      int
	OutputDir    string
	Options      []core.Option
	Parameters   map[string]string
	Log          logging.Logger
}

// Jobs lists the jobs Run will execute, in order.
func (b *Batch) Jobs() []Job {
	jobs := make([]Job, len(b.Anisotropies))
	for i, a := range b.Anisotropies {
		jobs[i] = Job{
			ID:         uuid.NewString(),
			Index:      i,
			Name:       fmt.Sprintf("%s-%s-%.8f", b.Label, b.Model, a),
			Anisotropy: a,
		}
	}
	return jobs
}

// Run executes every job and returns results in job order. The first failing
// job cancels the ones not yet finished.
func (b *Batch) Run(ctx context.Context) ([]Result, error) {
	log := b.Log
	if log == nil {
		log = logging.Default()
	}
	log = log.WithComponent("batch")
	workers := b.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs := b.Jobs()
	results := make([]Result, len(jobs))
	log.Info("batch started",
		logging.WithField("model", b.Model),
		logging.WithField("jobs", len(jobs)),
		logging.WithField("workers", workers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		g.Go(func() error {
			res, err := b.run(ctx, job)
			metrics.JobDone(err)
			if err != nil {
				log.Error("job failed",
					logging.WithField("job", job.Name),
					logging.WithField("id", job.ID),
					logging.WithField("error", err))
				return fmt.Errorf("job %s: %w", job.Name, err)
			}
			log.Info("job done",
				logging.WithField("job", job.Name),
				logging.WithField("id", job.ID),
				logging.WithField("points", res.Series.Len()),
				logging.WithField("elapsed", res.Summary.Elapsed))
			results[job.Index] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *Batch) run(ctx context.Context, job Job) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	sites, topo, err := b.Topology(job.Anisotropy)
	if err != nil {
		return Result{}, err
	}
	opts := append([]core.Option{}, b.Options...)
	opts = append(opts, core.WithRNG(core.NewStream(b.Seed, uint64(job.Index))))
	e, err := core.New(b.Model, sites, topo, opts...)
	if err != nil {
		return Result{}, err
	}

	series, err := b.Drive(ctx, e)
	if err != nil {
		return Result{}, err
	}
	series.Name = job.Name

	res := Result{Job: job, Series: series}
	res.Summary = store.Summary{
		ID:         job.ID,
		Name:       job.Name,
		Model:      b.Model,
		Topology:   b.Label,
		Anisotropy: job.Anisotropy,
		Sites:      sites,
		Points:     series.Len(),
		Overflows:  e.Stats().Overflows,
		Started:    start,
		Parameters: b.Parameters,
	}
	if tc, ok := CriticalTemperature(series.Sorted()); ok {
		res.Summary.CriticalTemperature = &tc
	}
	res.Summary.Elapsed = time.Since(start)

	if b.OutputDir != "" {
		if res.Path, err = series.Save(b.OutputDir); err != nil {
			return Result{}, err
		}
		if _, err := store.WriteSummary(b.OutputDir, res.Summary); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}
