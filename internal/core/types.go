package core

import (
	"errors"
	"fmt"
	"sort"

	"spin-mc/internal/neighbor"
)

var (
	// ErrUnknownEngine is returned when no factory is registered under a name.
	ErrUnknownEngine = errors.New("core: unknown engine")
	// ErrNoSites is returned when an engine is constructed over an empty lattice.
	ErrNoSites = errors.New("core: lattice has no sites")
)

// Checkpoint configures the early-stop heuristic of Run. Sampling stops after
// the sample at trial index Trial when the running mean magnetization is
// strictly greater than Threshold.
type Checkpoint struct {
	Trial     int
	Threshold float64
}

// NoCheckpoint never triggers an early stop.
var NoCheckpoint = Checkpoint{Trial: -1}

// Schedule describes how a Run call spends its trials.
type Schedule struct {
	// BurnIn trials are evolved but never sampled.
	BurnIn int
	// StepsPerTrial elementary steps are performed between samples.
	StepsPerTrial int
}

// Report aggregates the observables measured by one Run call.
type Report struct {
	Magnetization     float64
	Susceptibility    float64
	MagnetizationErr  float64
	SusceptibilityErr float64
	Samples           int
	MeanClusterSize   float64
	MeanInterfaces    float64
	Overflows         int
}

// Stats counts work performed by an engine since construction.
type Stats struct {
	Steps     int
	Flips     int
	Overflows int
}

// Engine is the contract shared by the classical and quantum cluster engines.
type Engine interface {
	Name() string
	Sites() int
	// Zero reinitializes spin state without touching topology.
	Zero()
	// Evolve performs count elementary cluster steps at inverse temperature beta.
	Evolve(beta float64, count int)
	OrderParam() float64
	Run(beta float64, trials int, cp Checkpoint) Report
	Stats() Stats
}

// Factory constructs an Engine over sites sites wired by topo.
type Factory func(sites int, topo neighbor.Provider, opts ...Option) (Engine, error)

var engines = map[string]Factory{}

// Register adds an engine factory under the provided name.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	engines[name] = f
}

// Engines exposes the registry of available engine factories.
func Engines() map[string]Factory {
	return engines
}

// EngineNames returns the registered names in sorted order.
func EngineNames() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New looks up name in the registry and constructs the engine.
func New(name string, sites int, topo neighbor.Provider, opts ...Option) (Engine, error) {
	f, ok := engines[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownEngine)
	}
	return f(sites, topo, opts...)
}
