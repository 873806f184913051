// Package observer provides simulated subjects for headless runs and tests,
// along with the log-parabola model of an average contrast sensitivity
// function that sets their per-frequency thresholds.
package observer

import (
	"math"
	"math/rand"

	"CSF/internal/response"
	"CSF/internal/stim"
)

// GuessRate is the chance of naming the right location without seeing it.
const GuessRate = 1.0 / stim.NumLocations

// Observer answers a presentation.
type Observer interface {
	Answer(p stim.Params, displayed stim.Location) response.Guess
}

// ThresholdFunc returns the threshold contrast at a spatial frequency.
type ThresholdFunc func(freq float64) float64

// Fixed returns a ThresholdFunc that ignores frequency.
func Fixed(threshold float64) ThresholdFunc {
	return func(float64) float64 { return threshold }
}

// Threshold answers correctly exactly when the contrast is above its
// threshold and says "unsure" otherwise.
type Threshold struct {
	Threshold ThresholdFunc
}

func (o Threshold) Answer(p stim.Params, displayed stim.Location) response.Guess {
	if p.Contrast > o.Threshold(p.Frequency) {
		return response.GuessAt(displayed)
	}
	return response.Unsure
}

// Weibull detects a stimulus with the probability given by a Weibull
// psychometric function and guesses a location at random when it does not.
type Weibull struct {
	Threshold ThresholdFunc
	// Slope is the Weibull shape parameter; 3.5 when zero.
	Slope float64
	Rand  *rand.Rand
}

func (o Weibull) slope() float64 {
	if o.Slope <= 0 {
		return 3.5
	}
	return o.Slope
}

// Detect is the probability of seeing contrast c at frequency freq.
func (o Weibull) Detect(c, freq float64) float64 {
	alpha := o.Threshold(freq)
	if c <= 0 || alpha <= 0 {
		return 0
	}
	return 1 - math.Exp(-math.Pow(c/alpha, o.slope()))
}

// PCorrect is the probability of naming the right location.
func (o Weibull) PCorrect(c, freq float64) float64 {
	return GuessRate + (1-GuessRate)*o.Detect(c, freq)
}

func (o Weibull) Answer(p stim.Params, displayed stim.Location) response.Guess {
	if o.Rand.Float64() < o.Detect(p.Contrast, p.Frequency) {
		return response.GuessAt(displayed)
	}
	return response.GuessAt(stim.Locations[o.Rand.Intn(stim.NumLocations)])
}
