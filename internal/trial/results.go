package trial

import (
	"maps"
	"math"
	"slices"

	"github.com/montanaflynn/stats"
)

// Results maps each tested spatial frequency (c/deg) to the thresholds of its
// staircases, in staircase creation order.
type Results map[float64][]float64

// Clone returns a deep copy of r.
func (r Results) Clone() Results {
	out := make(Results, len(r))
	for f, th := range r {
		out[f] = slices.Clone(th)
	}
	return out
}

// Frequencies returns the tested frequencies in ascending order.
func (r Results) Frequencies() []float64 {
	return slices.Sorted(maps.Keys(r))
}

// Point summarises the thresholds measured at one frequency.
type Point struct {
	Frequency  float64
	Thresholds []float64
	// Mean is the mean threshold contrast across staircases.
	Mean float64
	// Spread is the standard deviation of the thresholds.
	Spread float64
	// Sensitivity is 1/Mean.
	Sensitivity float64
}

// Summary returns one point per frequency in ascending frequency order.
func (r Results) Summary() []Point {
	points := make([]Point, 0, len(r))
	for _, f := range r.Frequencies() {
		th := r[f]
		p := Point{Frequency: f, Thresholds: slices.Clone(th)}
		p.Mean, _ = stats.Mean(th)
		p.Spread, _ = stats.StandardDeviation(th)
		if p.Mean > 0 {
			p.Sensitivity = 1 / p.Mean
		} else {
			p.Sensitivity = math.Inf(1)
		}
		points = append(points, p)
	}
	return points
}
