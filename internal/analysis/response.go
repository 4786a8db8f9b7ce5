package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Response summarizes one recorded signal.
type Response struct {
	Mean float64
	Std  float64
	RMS  float64
	Peak float64
	// SettlingTime is the first time after which |x| stays within the
	// band. It is NaN when the signal never settles.
	SettlingTime float64
}

// Describe computes the response summary of values sampled at times.
func Describe(times, values []float64, band float64) Response {
	if len(values) == 0 {
		return Response{SettlingTime: math.NaN()}
	}
	var r Response
	r.Mean, r.Std = stat.MeanStdDev(values, nil)
	r.RMS = math.Sqrt(floats.Dot(values, values) / float64(len(values)))
	r.Peak = math.Max(math.Abs(floats.Max(values)), math.Abs(floats.Min(values)))
	r.SettlingTime = SettlingTime(times, values, band)
	return r
}

// SettlingTime returns the time of the first sample after which every
// sample stays within ±band.
func SettlingTime(times, values []float64, band float64) float64 {
	n := len(values)
	if n == 0 || len(times) < n {
		return math.NaN()
	}
	last := -1
	for i := n - 1; i >= 0; i-- {
		if math.Abs(values[i]) > band {
			last = i
			break
		}
	}
	switch {
	case last == -1:
		return times[0]
	case last == n-1:
		return math.NaN()
	default:
		return times[last+1]
	}
}
