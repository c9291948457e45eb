// Package sweep drives engines across temperature ranges and runs batches of
// independent jobs concurrently.
package sweep

import (
	"context"
	"math"

	"spin-mc/internal/core"
	"spin-mc/internal/logging"
	"spin-mc/internal/store"
)

// Magnetization bounds used by Search to narrow its window.
const (
	DisorderedBelow = 0.02
	OrderedAbove    = 0.2
)

// Linspace returns count evenly spaced values from start to end inclusive.
func Linspace(start, end float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	if count == 1 {
		return []float64{start}
	}
	delta := (end - start) / float64(count-1)
	out := make([]float64, count)
	for i := range out {
		out[i] = start + delta*float64(i)
	}
	return out
}

// ReciprocalLinspace returns the inverse temperatures of Linspace(end, start,
// count), so betas ascend while temperatures are evenly spaced.
func ReciprocalLinspace(start, end float64, count int) []float64 {
	out := Linspace(end, start, count)
	for i, t := range out {
		out[i] = 1 / t
	}
	return out
}

// LinspaceEx returns count evenly spaced values strictly between start and
// end.
func LinspaceEx(start, end float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	if count == 1 {
		return []float64{start}
	}
	delta := (end - start) / float64(count+1)
	out := make([]float64, count)
	for i := range out {
		out[i] = start + delta*float64(i+1)
	}
	return out
}

// Temperatures is an evenly spaced temperature range.
type Temperatures struct {
	Start, End float64
	Count      int
}

// Window is the beta range refined by Search.
type Window struct {
	Bottom, Top float64
	Layers      int
	PerLayer    int
}

// OnePass resets e and runs it once per temperature in temps. The checkpoint
// stops a run early when it is already ordered a tenth of the way in.
func OnePass(ctx context.Context, e core.Engine, temps Temperatures, trials int) (store.Series, error) {
	log := logging.Default().WithComponent("sweep")
	var s store.Series
	for _, beta := range ReciprocalLinspace(temps.Start, temps.End, temps.Count) {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		e.Zero()
		rep := e.Run(beta, trials, core.Checkpoint{Trial: trials / 10, Threshold: 0.5})
		s.Append(beta, rep)
		logPoint(log, e, beta, rep)
	}
	return s, nil
}

// Search scans w layer by layer. After each layer the window shrinks to the
// betas bracketing the transition: disordered points raise the bottom and
// ordered points lower the top.
func Search(ctx context.Context, e core.Engine, w Window, trials int) (store.Series, error) {
	log := logging.Default().WithComponent("sweep")
	var s store.Series
	bottom, top := w.Bottom, w.Top
	for layer := 0; layer < w.Layers; layer++ {
		line := Linspace(bottom, top, w.PerLayer)
		if layer > 0 {
			line = LinspaceEx(bottom, top, w.PerLayer)
		}
		nextBottom, nextTop := bottom, top
		for _, beta := range line {
			if err := ctx.Err(); err != nil {
				return s, err
			}
			e.Zero()
			rep := e.Run(beta, trials, core.Checkpoint{Trial: trials / 2, Threshold: 0.5})
			s.Append(beta, rep)
			logPoint(log, e, beta, rep)

			if rep.Magnetization < DisorderedBelow {
				nextBottom = max(nextBottom, beta)
			}
			if rep.Magnetization > OrderedAbove {
				nextTop = min(nextTop, beta)
			}
		}
		bottom, top = nextBottom, nextTop
		log.Debug("search layer done",
			logging.WithField("layer", layer),
			logging.WithField("bottom", bottom),
			logging.WithField("top", top))
	}
	return s, nil
}

func logPoint(log logging.Logger, e core.Engine, beta float64, rep core.Report) {
	fields := []logging.Field{
		logging.WithField("engine", e.Name()),
		logging.WithField("temperature", 1/beta),
		logging.WithField("magnetization", rep.Magnetization),
		logging.WithField("susceptibility", rep.Susceptibility),
		logging.WithField("samples", rep.Samples),
	}
	if rep.MeanInterfaces > 0 {
		fields = append(fields, logging.WithField("interfaces", rep.MeanInterfaces))
	}
	log.Debug("point done", fields...)
}

// CriticalTemperature estimates where the magnetization crosses 0.5 from the
// steepest descending segment of magnetization against temperature. s must be
// sorted by beta. It reports false when no segment has a usable slope.
func CriticalTemperature(s store.Series) (float64, bool) {
	if s.Len() <= 1 {
		return math.NaN(), false
	}
	found := false
	var slope, tempMid, magMid float64
	for i := 0; i+1 < s.Len(); i++ {
		t0, t1 := 1/s.Betas[i], 1/s.Betas[i+1]
		dt := t1 - t0
		if dt == 0 || math.IsNaN(dt) {
			continue
		}
		m0, m1 := s.Magnetizations[i], s.Magnetizations[i+1]
		if d := (m1 - m0) / dt; !found || d < slope {
			found = true
			slope = d
			tempMid = (t0 + t1) / 2
			magMid = (m0 + m1) / 2
		}
	}
	if !found || slope == 0 {
		return math.NaN(), false
	}
	return tempMid + (0.5-magMid)/slope, true
}
