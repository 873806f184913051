// Package geometry converts between screen pixels and degrees of visual angle
// for a subject at a known viewing distance, and derives the highest spatial
// frequency the display can render.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDisplay is returned for display geometry that cannot be used for
// conversions.
var ErrInvalidDisplay = errors.New("invalid display geometry")

// Display describes the physical screen and viewing distance.
type Display struct {
	// DistanceMM is the subject's distance from the screen.
	DistanceMM float64
	// WidthMM is the physical width of the visible screen area.
	WidthMM float64
	// WidthPx and HeightPx are the screen resolution in device pixels.
	WidthPx  int
	HeightPx int
}

// Validate reports whether d can be used for conversions.
func (d Display) Validate() error {
	switch {
	case d.DistanceMM <= 0:
		return fmt.Errorf("%w: distance %v mm", ErrInvalidDisplay, d.DistanceMM)
	case d.WidthMM <= 0:
		return fmt.Errorf("%w: width %v mm", ErrInvalidDisplay, d.WidthMM)
	case d.WidthPx <= 0 || d.HeightPx <= 0:
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidDisplay, d.WidthPx, d.HeightPx)
	}
	return nil
}

// MMPerPixel is the physical size of one pixel.
func (d Display) MMPerPixel() float64 {
	return d.WidthMM / float64(d.WidthPx)
}

// DegreesPerMM is the visual angle subtended by one millimetre at the screen
// centre.
func (d Display) DegreesPerMM() float64 {
	return rad2deg(math.Atan(1 / d.DistanceMM))
}

// PixelsPerDegree is the number of pixels spanning one degree of visual angle.
func (d Display) PixelsPerDegree() float64 {
	return 1 / (d.MMPerPixel() * d.DegreesPerMM())
}

// PixToDeg converts a length in pixels to degrees of visual angle.
func (d Display) PixToDeg(px float64) float64 {
	return rad2deg(math.Atan(px * d.MMPerPixel() / d.DistanceMM))
}

// DegToPix converts degrees of visual angle to a length in pixels.
func (d Display) DegToPix(deg float64) float64 {
	return deg * d.PixelsPerDegree()
}

// Nyquist is the highest spatial frequency, in cycles per degree, that the
// display can represent: half a cycle per pixel.
func (d Display) Nyquist() float64 {
	return 0.5 * d.PixelsPerDegree()
}

// Scaled returns the display as seen by a renderer working in logical pixels
// when the device pixel ratio is ratio.
func (d Display) Scaled(ratio float64) Display {
	if ratio <= 1 {
		return d
	}
	d.WidthPx = int(math.Round(float64(d.WidthPx) / ratio))
	d.HeightPx = int(math.Round(float64(d.HeightPx) / ratio))
	return d
}

// SizeDeg returns the full screen size in degrees of visual angle.
func (d Display) SizeDeg() (w, h float64) {
	return d.PixToDeg(float64(d.WidthPx)), d.PixToDeg(float64(d.HeightPx))
}

func rad2deg(r float64) float64 { return r * 180 / math.Pi }
