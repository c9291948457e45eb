package core

import "math"

// Moments returns the sample mean of x and of x².
func Moments(samples []float64) (mean, meanSq float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	for _, m := range samples {
		mean += m
		meanSq += m * m
	}
	n := float64(len(samples))
	return mean / n, meanSq / n
}

// Summarize reduces order-parameter samples to a Report. The susceptibility is
// (⟨m²⟩−⟨m⟩²)·sites·scale.
func Summarize(samples []float64, sites int, scale float64) Report {
	if len(samples) == 0 {
		return Report{}
	}
	mean, meanSq := Moments(samples)
	return Report{
		Magnetization:  mean,
		Susceptibility: (meanSq - mean*mean) * float64(sites) * scale,
		Samples:        len(samples),
	}
}

// BinnedErrors estimates standard errors of the magnetization and the
// susceptibility by splitting samples into bins contiguous blocks. It returns
// zeros when there are fewer than two samples per bin.
func BinnedErrors(samples []float64, sites int, scale float64, bins int) (magErr, susErr float64) {
	if bins < 2 || len(samples) < 2*bins {
		return 0, 0
	}
	size := len(samples) / bins
	means := make([]float64, bins)
	sus := make([]float64, bins)
	for b := 0; b < bins; b++ {
		r := Summarize(samples[b*size:(b+1)*size], sites, scale)
		means[b] = r.Magnetization
		sus[b] = r.Susceptibility
	}
	return standardError(means), standardError(sus)
}

func standardError(xs []float64) float64 {
	mean, _ := Moments(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	n := float64(len(xs))
	return math.Sqrt(ss / (n - 1) / n)
}
