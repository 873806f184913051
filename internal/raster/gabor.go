// Package raster turns stimulus parameters into RGBA pixels: a sinusoidal or
// square-wave grating under a Gaussian envelope, gamma-encoded around the
// mid-grey background. A CPU rasterizer is always available; an OpenCL one is
// compiled in with the opencl build tag.
package raster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"CSF/internal/stim"
)

const (
	// DefaultGamma is the display gamma used when a Spec leaves it unset.
	DefaultGamma = 2.42
	// DefaultEnvelope is the Gaussian standard deviation as a fraction of the
	// patch size.
	DefaultEnvelope = 0.15
)

var (
	ErrInvalidSpec = errors.New("invalid raster spec")
	ErrBufferSize  = errors.New("destination buffer too small")
)

// Spec describes one square grating patch.
type Spec struct {
	// Size is the side of the patch in pixels.
	Size   int
	Params stim.Params
	Gamma  float64
	// Envelope is the Gaussian sd relative to Size.
	Envelope float64
	// Square selects a square-wave carrier.
	Square bool
}

func (s Spec) withDefaults() Spec {
	if s.Gamma <= 0 {
		s.Gamma = DefaultGamma
	}
	if s.Envelope <= 0 {
		s.Envelope = DefaultEnvelope
	}
	return s
}

func (s Spec) validate(dst []byte) error {
	if s.Size <= 0 {
		return fmt.Errorf("%w: size %d", ErrInvalidSpec, s.Size)
	}
	if c := s.Params.Contrast; c < 0 || c > 1 {
		return fmt.Errorf("%w: contrast %v", ErrInvalidSpec, c)
	}
	if need := s.Size * s.Size * 4; len(dst) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrBufferSize, len(dst), need)
	}
	return nil
}

// Rasterizer fills dst with the RGBA pixels of a patch, row-major, four bytes
// per pixel.
type Rasterizer interface {
	Rasterize(ctx context.Context, s Spec, dst []byte) error
	Name() string
	Close()
}

// New returns the OpenCL rasterizer when gpu is set and a device is
// available, otherwise the CPU rasterizer.
func New(gpu bool, workers int, logger *slog.Logger) Rasterizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if gpu {
		r, err := NewOpenCL()
		if err == nil {
			logger.Info("rasterizing gratings with OpenCL", "device", r.Name())
			return r
		}
		logger.Warn("OpenCL unavailable, falling back to CPU", "error", err)
	}
	return NewCPU(workers)
}

// carrier is the grating waveform at normalized patch coordinates (u, v),
// each in [-0.5, 0.5).
func carrier(s Spec, u, v float64) float64 {
	theta := s.Params.Orientation * math.Pi / 180
	x := u*math.Cos(theta) + v*math.Sin(theta)
	w := math.Sin(2*math.Pi*s.Params.Cycles*x + s.Params.Phase*math.Pi/180)
	if s.Square {
		switch {
		case w > 0:
			return 1
		case w < 0:
			return -1
		}
		return 0
	}
	return w
}

// Luminance is the linear luminance in [0,1] at (u, v).
func Luminance(s Spec, u, v float64) float64 {
	sd := s.Envelope
	env := math.Exp(-(u*u + v*v) / (2 * sd * sd))
	return 0.5 + 0.5*s.Params.Contrast*carrier(s, u, v)*env
}

// Encode gamma-encodes a linear luminance into an 8-bit level.
func Encode(lum, gamma float64) byte {
	lum = math.Max(0, math.Min(1, lum))
	return byte(math.Round(255 * math.Pow(lum, 1/gamma)))
}

// MidGrey is the background level that matches a zero-contrast patch.
func MidGrey(gamma float64) byte {
	if gamma <= 0 {
		gamma = DefaultGamma
	}
	return Encode(0.5, gamma)
}

func coord(i, size int) float64 {
	return (float64(i)+0.5)/float64(size) - 0.5
}

func putGrey(dst []byte, i int, level byte) {
	dst[i] = level
	dst[i+1] = level
	dst[i+2] = level
	dst[i+3] = 0xff
}
