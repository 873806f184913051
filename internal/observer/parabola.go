package observer

import "math"

// Parabola is an asymmetric parabola in log-log coordinates describing
// contrast sensitivity against spatial frequency. WidthLow shapes the curve
// below PeakFrequency and WidthHigh above it; larger widths fall off faster.
type Parabola struct {
	PeakSensitivity float64
	PeakFrequency   float64
	WidthLow        float64
	WidthHigh       float64
}

// DefaultParabola is a typical adult CSF.
var DefaultParabola = Parabola{
	PeakSensitivity: 150,
	PeakFrequency:   3.5,
	WidthLow:        5,
	WidthHigh:       15,
}

// Sensitivity returns the modelled sensitivity (1/threshold) at freq c/deg.
func (p Parabola) Sensitivity(freq float64) float64 {
	x := math.Log10(freq)
	peak := math.Log10(p.PeakFrequency)
	w := math.Log10(p.WidthHigh)
	if x < peak {
		w = math.Log10(p.WidthLow)
	}
	d := x - peak
	return math.Pow(10, math.Log10(p.PeakSensitivity)-d*d*w*w)
}

// Threshold returns the modelled threshold contrast at freq, capped at 1.
func (p Parabola) Threshold(freq float64) float64 {
	return math.Min(1, 1/p.Sensitivity(freq))
}

// Curve evaluates the sensitivity at each frequency.
func (p Parabola) Curve(freqs []float64) []float64 {
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		out[i] = p.Sensitivity(f)
	}
	return out
}
