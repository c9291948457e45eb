package app

import (
	"flag"
	"math"

	"spin-mc/internal/core"
	"spin-mc/internal/topology"
)

// maxBurst caps the catch-up steps taken in one frame.
const maxBurst = 64

// Config represents the command-line parameters of the viewer.
type Config struct {
	Model string
	Size  int
	T2    float64
	Beta  float64
	Scale int
	TPS   int
	Rate  int
	Seed  int64
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{Model: "ising", Size: 128, T2: 1, Beta: 0.44, Scale: 4, TPS: 60, Rate: 240, Seed: 42}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Model, "model", c.Model, "engine to run")
	fs.IntVar(&c.Size, "size", c.Size, "lattice side length")
	fs.Float64Var(&c.T2, "t2", c.T2, "vertical bond strength")
	fs.Float64Var(&c.Beta, "beta", c.Beta, "initial inverse temperature")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "ticks per second")
	fs.IntVar(&c.Rate, "rate", c.Rate, "cluster steps per second")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "random seed")
}

type shader interface {
	Shade(dst []uint8)
}

// Session owns a running engine on a square lattice and the state the viewer
// controls: temperature, pause and pacing.
type Session struct {
	engine  core.Engine
	shader  shader
	grid    core.Grid
	cells   []uint8
	dirty   bool
	beta    float64
	paused  bool
	stepper *core.FixedStep
	order   float64
}

// NewSession builds the engine described by cfg.
func NewSession(cfg *Config, opts ...core.Option) (*Session, error) {
	sites, topo, err := topology.Rect(cfg.Size, cfg.Size, cfg.T2)
	if err != nil {
		return nil, err
	}
	opts = append([]core.Option{core.WithSeed(cfg.Seed)}, opts...)
	e, err := core.New(cfg.Model, sites, topo, opts...)
	if err != nil {
		return nil, err
	}
	s := &Session{
		engine:  e,
		grid:    core.NewGrid(cfg.Size, cfg.Size),
		cells:   make([]uint8, sites),
		dirty:   true,
		beta:    cfg.Beta,
		stepper: core.NewFixedStep(cfg.Rate),
		order:   e.OrderParam(),
	}
	s.shader, _ = e.(shader)
	return s, nil
}

// Tick advances the engine by the steps owed since the previous tick.
func (s *Session) Tick() {
	due := s.stepper.Due(maxBurst)
	if s.paused {
		return
	}
	s.Advance(due)
}

// Advance performs n cluster steps at the current temperature.
func (s *Session) Advance(n int) {
	if n <= 0 {
		return
	}
	s.engine.Evolve(s.beta, n)
	s.order = s.engine.OrderParam()
	s.dirty = true
}

// TogglePause pauses or resumes Tick.
func (s *Session) TogglePause() { s.paused = !s.paused }

// Paused reports whether Tick is suspended.
func (s *Session) Paused() bool { return s.paused }

// Reset reinitializes the spins.
func (s *Session) Reset() {
	s.engine.Zero()
	s.order = s.engine.OrderParam()
	s.dirty = true
}

// AdjustBeta scales beta by 5% per unit of direction.
func (s *Session) AdjustBeta(direction int) {
	s.beta = max(s.beta*math.Pow(1.05, float64(direction)), 1e-3)
}

// Beta returns the current inverse temperature.
func (s *Session) Beta() float64 { return s.beta }

// Grid returns the lattice dimensions.
func (s *Session) Grid() core.Grid { return s.grid }

// Name returns the engine name.
func (s *Session) Name() string { return s.engine.Name() }

// Cells returns one shade per site, refreshed after the engine changed.
// Engines that cannot shade leave every cell at zero.
func (s *Session) Cells() []uint8 {
	if s.dirty && s.shader != nil {
		s.shader.Shade(s.cells)
	}
	s.dirty = false
	return s.cells
}

// Parameters snapshots the session for the HUD.
func (s *Session) Parameters() core.ParameterSnapshot {
	st := s.engine.Stats()
	mean := 0.0
	if st.Steps > 0 {
		mean = float64(st.Flips) / float64(st.Steps)
	}
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		{
			Name: "Engine",
			Params: []core.Parameter{
				core.StringParam("model", "Model", s.engine.Name()),
				core.IntParam("sites", "Sites", s.engine.Sites()),
				core.FloatParam("beta", "Beta", round(s.beta)),
				core.FloatParam("temperature", "Temperature", round(1/s.beta)),
			},
		},
		{
			Name: "Observables",
			Params: []core.Parameter{
				core.FloatParam("magnetization", "Magnetization", round(s.order)),
				core.IntParam("steps", "Steps", st.Steps),
				core.FloatParam("cluster", "Mean cluster", round(mean)),
				core.IntParam("overflows", "Overflows", st.Overflows),
			},
		},
	}}
}

func round(v float64) float64 { return math.Round(v*1e4) / 1e4 }
