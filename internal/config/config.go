// Package config describes a sweep plan: which engine runs on which lattice
// over which temperatures, and where results go.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"spin-mc/internal/core"
	"spin-mc/internal/neighbor"
	"spin-mc/internal/sweep"
	"spin-mc/internal/topology"
)

// ErrInvalidPlan is returned by Validate.
var ErrInvalidPlan = errors.New("config: invalid plan")

// Sweep modes.
const (
	ModeOnePass = "one-pass"
	ModeSearch  = "search"
)

// Topology kinds.
const (
	KindSquare = "square"
	KindRect   = "rect"
	KindBonds  = "bonds"
)

// Topology selects the lattice.
type Topology struct {
	Kind      string    `yaml:"kind"`
	Rows      int       `yaml:"rows"`
	Cols      int       `yaml:"cols"`
	T2        float64   `yaml:"t2"`
	Path      string    `yaml:"path,omitempty"`
	Strengths []float64 `yaml:"strengths,omitempty"`
}

// Range is an evenly spaced interval.
type Range struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	Count int     `yaml:"count"`
}

// Search bounds the beta window refined in search mode.
type Search struct {
	Bottom   float64 `yaml:"bottom"`
	Top      float64 `yaml:"top"`
	Layers   int     `yaml:"layers"`
	PerLayer int     `yaml:"per_layer"`
}

// Plan is a complete sweep description.
type Plan struct {
	Model         string   `yaml:"model"`
	Topology      Topology `yaml:"topology"`
	Temperatures  Range    `yaml:"temperatures"`
	Anisotropy    Range    `yaml:"anisotropy"`
	Trials        int      `yaml:"trials"`
	Mode          string   `yaml:"mode"`
	Search        Search   `yaml:"search"`
	Workers       int      `yaml:"workers"`
	Seed          int64    `yaml:"seed"`
	StackCapacity int      `yaml:"stack_capacity,omitempty"`
	OutputDir     string   `yaml:"output_dir"`
	LogLevel      string   `yaml:"log_level"`
	MetricsAddr   string   `yaml:"metrics_addr,omitempty"`
}

// DefaultPlan returns the standard Ising sweep on a 128×128 square lattice.
func DefaultPlan() Plan {
	return Plan{
		Model:        "ising",
		Topology:     Topology{Kind: KindSquare, Rows: 128, Cols: 128, T2: 1},
		Temperatures: Range{Start: 0.01, End: 4, Count: 50},
		Trials:       10000,
		Mode:         ModeOnePass,
		Search:       Search{Bottom: 0.1, Top: 1, Layers: 3, PerLayer: 10},
		Workers:      8,
		Seed:         1337,
		OutputDir:    filepath.Join("data", "output"),
		LogLevel:     "info",
	}
}

// FromMap populates a plan from a string map (flag-style key/value pairs).
// Unparseable values keep their defaults.
func FromMap(cfg map[string]string) Plan {
	return DefaultPlan().With(cfg)
}

// With returns a copy of p overridden by the flag-style pairs in cfg.
func (p Plan) With(cfg map[string]string) Plan {
	if cfg == nil {
		return p
	}
	p.Topology.Strengths = slices.Clone(p.Topology.Strengths)
	if v, ok := cfg["model"]; ok && v != "" {
		p.Model = v
	}
	if v, ok := cfg["topology"]; ok && v != "" {
		p.Topology.Kind = v
	}
	if v, ok := cfg["rows"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			p.Topology.Rows = parsed
		}
	}
	if v, ok := cfg["cols"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			p.Topology.Cols = parsed
		}
	}
	if v, ok := cfg["t2"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			p.Topology.T2 = parsed
		}
	}
	if v, ok := cfg["bonds"]; ok && v != "" {
		p.Topology.Kind = KindBonds
		p.Topology.Path = v
	}
	if v, ok := cfg["strengths"]; ok && v != "" {
		if parsed, err := parseFloats(v); err == nil {
			p.Topology.Strengths = parsed
		}
	}
	if v, ok := cfg["temp_start"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			p.Temperatures.Start = parsed
		}
	}
	if v, ok := cfg["temp_end"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			p.Temperatures.End = parsed
		}
	}
	if v, ok := cfg["temp_count"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			p.Temperatures.Count = parsed
		}
	}
	if v, ok := cfg["t2_start"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			p.Anisotropy.Start = parsed
		}
	}
	if v, ok := cfg["t2_end"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			p.Anisotropy.End = parsed
		}
	}
	if v, ok := cfg["t2_count"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			p.Anisotropy.Count = parsed
		}
	}
	if v, ok := cfg["trials"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			p.Trials = parsed
		}
	}
	if v, ok := cfg["mode"]; ok && v != "" {
		p.Mode = v
	}
	if v, ok := cfg["bottom"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			p.Search.Bottom = parsed
		}
	}
	if v, ok := cfg["top"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			p.Search.Top = parsed
		}
	}
	if v, ok := cfg["layers"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			p.Search.Layers = parsed
		}
	}
	if v, ok := cfg["per_layer"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			p.Search.PerLayer = parsed
		}
	}
	if v, ok := cfg["workers"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			p.Workers = parsed
		}
	}
	if v, ok := cfg["seed"]; ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			p.Seed = parsed
		}
	}
	if v, ok := cfg["stack_capacity"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			p.StackCapacity = parsed
		}
	}
	if v, ok := cfg["out"]; ok && v != "" {
		p.OutputDir = v
	}
	if v, ok := cfg["log_level"]; ok && v != "" {
		p.LogLevel = v
	}
	if v, ok := cfg["metrics_addr"]; ok {
		p.MetricsAddr = v
	}
	return p
}

func parseFloats(v string) ([]float64, error) {
	parts := strings.Split(v, ",")
	out := make([]float64, 0, len(parts))
	for _, s := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Validate reports every problem with p wrapped in ErrInvalidPlan.
func (p Plan) Validate() error {
	var problems []string
	if _, ok := core.Engines()[p.Model]; !ok {
		problems = append(problems, fmt.Sprintf("unknown model %q (have %s)", p.Model, strings.Join(core.EngineNames(), ", ")))
	}
	switch p.Topology.Kind {
	case KindSquare, KindRect:
		if p.Topology.Rows < 3 || p.Topology.Cols < 3 {
			problems = append(problems, "lattice needs at least 3 rows and 3 cols")
		}
	case KindBonds:
		if p.Topology.Path == "" {
			problems = append(problems, "bond topology needs a path")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown topology %q", p.Topology.Kind))
	}
	if p.Trials <= 0 {
		problems = append(problems, "trials must be positive")
	}
	switch p.Mode {
	case ModeOnePass:
		t := p.Temperatures
		if t.Start <= 0 || t.End <= 0 || t.Count <= 0 {
			problems = append(problems, "temperatures need positive start, end and count")
		}
	case ModeSearch:
		s := p.Search
		if s.Bottom <= 0 || s.Top <= s.Bottom || s.Layers <= 0 || s.PerLayer <= 0 {
			problems = append(problems, "search needs 0 < bottom < top and positive layers and per_layer")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown mode %q", p.Mode))
	}
	if p.Anisotropy.Count < 0 {
		problems = append(problems, "anisotropy count must not be negative")
	}
	if p.Workers < 0 {
		problems = append(problems, "workers must not be negative")
	}
	if len(problems) > 0 {
		return errors.Wrap(ErrInvalidPlan, strings.Join(problems, "; "))
	}
	return nil
}

// Anisotropies returns the t2 values swept by the plan. Without an
// anisotropy range the single topology t2 is used.
func (p Plan) Anisotropies() []float64 {
	if p.Anisotropy.Count <= 0 {
		return []float64{p.Topology.T2}
	}
	return sweep.Linspace(p.Anisotropy.Start, p.Anisotropy.End, p.Anisotropy.Count)
}

// Build constructs the lattice for one anisotropy value. Square lattices
// ignore it. Bond lists without a strength table use {1, t2}, so class 1
// bonds carry the anisotropy.
func (t Topology) Build(t2 float64) (int, neighbor.Provider, error) {
	switch t.Kind {
	case KindSquare:
		return topology.Square(t.Cols, t.Rows)
	case KindRect:
		return topology.Rect(t.Cols, t.Rows, t2)
	case KindBonds:
		strengths := t.Strengths
		if len(strengths) == 0 {
			strengths = []float64{1, t2}
		}
		return topology.Load(t.Path, strengths)
	}
	return 0, nil, errors.Wrapf(ErrInvalidPlan, "unknown topology %q", t.Kind)
}

// Driver returns the sweep driver selected by the plan's mode.
func (p Plan) Driver() sweep.Driver {
	if p.Mode == ModeSearch {
		s := p.Search
		return sweep.SearchDriver(sweep.Window{Bottom: s.Bottom, Top: s.Top, Layers: s.Layers, PerLayer: s.PerLayer}, p.Trials)
	}
	t := p.Temperatures
	return sweep.OnePassDriver(sweep.Temperatures{Start: t.Start, End: t.End, Count: t.Count}, p.Trials)
}

// Parameters snapshots the plan for display and for job summaries.
func (p Plan) Parameters() core.ParameterSnapshot {
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		{
			Name: "Engine",
			Params: []core.Parameter{
				core.StringParam("model", "Model", p.Model),
				core.IntParam("trials", "Trials", p.Trials),
				core.Int64Param("seed", "Seed", p.Seed),
				core.IntParam("stack_capacity", "Stack capacity", p.StackCapacity),
			},
		},
		{
			Name: "Lattice",
			Params: []core.Parameter{
				core.StringParam("topology", "Topology", p.Topology.Kind),
				core.IntParam("rows", "Rows", p.Topology.Rows),
				core.IntParam("cols", "Cols", p.Topology.Cols),
				core.FloatParam("t2", "Vertical bond", p.Topology.T2),
			},
		},
		{
			Name: "Sweep",
			Params: []core.Parameter{
				core.StringParam("mode", "Mode", p.Mode),
				core.FloatParam("temp_start", "Start temperature", p.Temperatures.Start),
				core.FloatParam("temp_end", "End temperature", p.Temperatures.End),
				core.IntParam("temp_count", "Temperatures", p.Temperatures.Count),
				core.IntParam("t2_count", "Anisotropies", p.Anisotropy.Count),
				core.IntParam("workers", "Workers", p.Workers),
			},
		},
	}}
}

// Flat returns the parameter snapshot as key/value pairs.
func (p Plan) Flat() map[string]string {
	out := map[string]string{}
	for _, g := range p.Parameters().Groups {
		for _, param := range g.Params {
			out[param.Key] = param.Value
		}
	}
	return out
}

// Load reads a YAML plan on top of DefaultPlan.
func Load(path string) (Plan, error) {
	p := DefaultPlan()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, errors.Wrap(err, "read plan")
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, errors.Wrapf(err, "decode plan %s", path)
	}
	return p, nil
}

// Save writes p as YAML.
func (p Plan) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encode plan")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create plan dir")
		}
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write plan %s", path)
}
