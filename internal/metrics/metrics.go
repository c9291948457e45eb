// Package metrics exports engine and sweep counters to Prometheus and
// provides the default engine Observer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spin-mc/internal/core"
	"spin-mc/internal/logging"
)

var (
	clusterStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spinmc_cluster_steps_total",
		Help: "Elementary cluster steps performed",
	}, []string{"engine"})

	clusterSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spinmc_cluster_size",
		Help:    "Cluster members flipped or queued per elementary step",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"engine"})

	clusterOverflowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spinmc_cluster_overflows_total",
		Help: "Elementary steps abandoned because the work stack was full",
	}, []string{"engine"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spinmc_run_duration_seconds",
		Help:    "Wall time of one Run call",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"engine"})

	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spinmc_sweep_jobs_total",
		Help: "Sweep jobs finished, by outcome",
	}, []string{"outcome"})
)

// Observer counts cluster steps and reports stack exhaustion as a warning.
type Observer struct {
	log logging.Logger
}

// NewObserver returns an Observer logging through log.
func NewObserver(log logging.Logger) *Observer {
	if log == nil {
		log = logging.Default()
	}
	return &Observer{log: log.WithComponent("engine")}
}

// Default returns an Observer on the process-wide logger.
func Default() core.Observer {
	return NewObserver(logging.Default())
}

// StepDone implements core.Observer.
func (o *Observer) StepDone(engine string, size int) {
	clusterStepsTotal.WithLabelValues(engine).Inc()
	clusterSize.WithLabelValues(engine).Observe(float64(size))
}

// CapacityExceeded implements core.Observer.
func (o *Observer) CapacityExceeded(engine string, step int, capacity int) {
	clusterOverflowsTotal.WithLabelValues(engine).Inc()
	o.log.Warn("cluster stack exhausted, step abandoned",
		logging.WithField("engine", engine),
		logging.WithField("step", step),
		logging.WithField("capacity", capacity))
}

// ObserveRun records the duration of a Run call.
func ObserveRun(engine string, d time.Duration) {
	runDuration.WithLabelValues(engine).Observe(d.Seconds())
}

// JobDone counts a finished sweep job.
func JobDone(err error) {
	if err != nil {
		jobsTotal.WithLabelValues("error").Inc()
		return
	}
	jobsTotal.WithLabelValues("ok").Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
