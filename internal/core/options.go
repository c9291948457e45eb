package core

// Observer receives per-step diagnostics from an engine. Implementations must
// be cheap; they are called once per elementary step.
type Observer interface {
	StepDone(engine string, clusterSize int)
	CapacityExceeded(engine string, step int, capacity int)
}

// NopObserver discards all events.
type NopObserver struct{}

// StepDone implements Observer.
func (NopObserver) StepDone(string, int) {}

// CapacityExceeded implements Observer.
func (NopObserver) CapacityExceeded(string, int, int) {}

// Settings is the resolved form of the engine options.
type Settings struct {
	RNG           *RNG
	Observer      Observer
	StackCapacity int
	Schedule      Schedule

	scheduleSet bool
}

// Option customizes engine construction.
type Option func(*Settings)

// WithRNG makes the engine draw from r. The engine takes ownership of r.
func WithRNG(r *RNG) Option {
	return func(s *Settings) { s.RNG = r }
}

// WithSeed gives the engine a fresh stream seeded with seed.
func WithSeed(seed int64) Option {
	return func(s *Settings) { s.RNG = NewRNG(seed) }
}

// WithObserver routes step diagnostics to o.
func WithObserver(o Observer) Option {
	return func(s *Settings) { s.Observer = o }
}

// WithStackCapacity bounds the cluster work stack.
func WithStackCapacity(n int) Option {
	return func(s *Settings) { s.StackCapacity = n }
}

// WithSchedule overrides the burn-in and steps-per-trial defaults.
func WithSchedule(sch Schedule) Option {
	return func(s *Settings) {
		s.Schedule = sch
		s.scheduleSet = true
	}
}

// Resolve applies opts over the engine defaults. Invalid values fall back to
// the defaults; a missing RNG is seeded from seed.
func Resolve(opts []Option, defaults Settings, seed int64) Settings {
	s := Settings{}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.RNG == nil {
		s.RNG = NewRNG(seed)
	}
	if s.Observer == nil {
		s.Observer = defaults.Observer
	}
	if s.Observer == nil {
		s.Observer = NopObserver{}
	}
	if s.StackCapacity <= 0 {
		s.StackCapacity = defaults.StackCapacity
	}
	if !s.scheduleSet || s.Schedule.BurnIn < 0 {
		s.Schedule.BurnIn = defaults.Schedule.BurnIn
	}
	if s.Schedule.StepsPerTrial <= 0 {
		s.Schedule.StepsPerTrial = defaults.Schedule.StepsPerTrial
	}
	return s
}
