package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/hajimehoshi/ebiten/v2"

	"CSF/internal/config"
	"CSF/internal/geometry"
	"CSF/internal/raster"
	"CSF/internal/stim"
)

// stimulusRenderer rasterizes gratings into an ebiten image when the
// presentation timer shows them and remembers which location is lit for
// Draw.
type stimulusRenderer struct {
	rast   raster.Rasterizer
	logger *slog.Logger

	size     int
	gamma    float64
	envelope float64
	square   bool

	centreX, centreY float64
	eccentricityPx   float64

	pixels   []byte
	patch    *ebiten.Image
	aperture *ebiten.Image

	lit bool
	loc stim.Location
}

func newStimulusRenderer(rast raster.Rasterizer, cfg *config.Config, disp geometry.Display, logger *slog.Logger) (*stimulusRenderer, error) {
	size := patchPixels(disp.DegToPix(cfg.Stimulus.PatchSizeDeg))
	if size <= 0 {
		return nil, fmt.Errorf("patch of %v deg is smaller than a pixel", cfg.Stimulus.PatchSizeDeg)
	}
	r := &stimulusRenderer{
		rast:           rast,
		logger:         logger,
		size:           size,
		gamma:          cfg.Stimulus.Gamma,
		envelope:       cfg.Stimulus.Envelope,
		square:         cfg.Stimulus.SquareWave,
		centreX:        float64(disp.WidthPx) / 2,
		centreY:        float64(disp.HeightPx) / 2,
		eccentricityPx: disp.DegToPix(cfg.Stimulus.EccentricityDeg),
		pixels:         make([]byte, size*size*4),
		patch:          ebiten.NewImage(size, size),
		aperture:       ebiten.NewImage(size, size),
	}

	ring := make([]byte, size*size*4)
	level := raster.MidGrey(r.gamma) - apertureContrast
	if err := raster.Aperture(size, apertureRingWidth, level, ring); err != nil {
		return nil, err
	}
	r.aperture.WritePixels(ring)
	logger.Info("stimulus layout",
		"patch_px", size,
		"eccentricity_px", math.Round(r.eccentricityPx),
		"rasterizer", rast.Name())
	return r, nil
}

// patchPixels rounds a patch side to an even pixel count so that the patch
// centres on a pixel boundary.
func patchPixels(px float64) int {
	n := int(math.Round(px))
	if n%2 == 1 {
		n++
	}
	return n
}

func (r *stimulusRenderer) Show(loc stim.Location, p stim.Params) {
	spec := raster.Spec{
		Size:     r.size,
		Params:   p,
		Gamma:    r.gamma,
		Envelope: r.envelope,
		Square:   r.square,
	}
	ctx, cancel := context.WithTimeout(context.Background(), rasterTimeout)
	defer cancel()
	if err := r.rast.Rasterize(ctx, spec, r.pixels); err != nil {
		r.logger.Error("rasterizing grating", "location", loc, "error", err)
		return
	}
	r.patch.WritePixels(r.pixels)
	r.loc, r.lit = loc, true
}

func (r *stimulusRenderer) Hide(stim.Location) { r.lit = false }

// origin is the top-left corner of the patch at loc.
func (r *stimulusRenderer) origin(loc stim.Location) (x, y float64) {
	dx, dy := loc.Offset()
	half := float64(r.size) / 2
	return r.centreX + dx*r.eccentricityPx - half, r.centreY + dy*r.eccentricityPx - half
}

// Draw paints the lit grating and, when apertures is set, the ring marking
// every empty location.
func (r *stimulusRenderer) Draw(screen *ebiten.Image, apertures bool) {
	for _, loc := range stim.Locations {
		img := r.aperture
		if r.lit && loc == r.loc {
			img = r.patch
		} else if !apertures {
			continue
		}
		x, y := r.origin(loc)
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(x, y)
		screen.DrawImage(img, op)
	}
}
