package raster

import "fmt"

type offset struct {
	dx int
	dy int
}

// ringFootprint lists the pixel offsets whose distance from the centre lies
// within [radius-width, radius].
func ringFootprint(radius, width int) []offset {
	inner := radius - width
	if inner < 0 {
		inner = 0
	}
	r2, i2 := radius*radius, inner*inner
	footprint := make([]offset, 0, (2*radius+1)*(2*radius+1))
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			d := x*x + y*y
			if d <= r2 && d >= i2 {
				footprint = append(footprint, offset{dx: x, dy: y})
			}
		}
	}
	return footprint
}

// Aperture fills dst with a size×size transparent patch carrying a thin ring
// at level, marking where a grating can appear.
func Aperture(size, width int, level byte, dst []byte) error {
	if size <= 0 || width <= 0 {
		return fmt.Errorf("%w: aperture size %d width %d", ErrInvalidSpec, size, width)
	}
	if need := size * size * 4; len(dst) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrBufferSize, len(dst), need)
	}
	clear(dst[:size*size*4])
	c := size / 2
	radius := (size - 1) / 2
	for _, o := range ringFootprint(radius, width) {
		x := clampCoord(c+o.dx, 0, size-1)
		y := clampCoord(c+o.dy, 0, size-1)
		putGrey(dst, (y*size+x)*4, level)
	}
	return nil
}

// clampCoord constrains v to lie within the inclusive [min, max] range.
func clampCoord(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
