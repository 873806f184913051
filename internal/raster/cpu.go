package raster

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// CPU rasterizes on the host, splitting the patch into row bands that are
// filled concurrently.
type CPU struct {
	workers int
}

// NewCPU returns a CPU rasterizer using up to workers goroutines, or one per
// CPU when workers is not positive.
func NewCPU(workers int) *CPU {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &CPU{workers: workers}
}

func (c *CPU) Name() string { return "cpu" }

func (c *CPU) Close() {}

// Rasterize fills dst with the patch described by s.
func (c *CPU) Rasterize(ctx context.Context, s Spec, dst []byte) error {
	s = s.withDefaults()
	if err := s.validate(dst); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, b := range bands(s.Size, c.workers) {
		g.Go(func() error {
			for y := b.start; y < b.end; y++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				fillRow(s, y, dst)
			}
			return nil
		})
	}
	return g.Wait()
}

func fillRow(s Spec, y int, dst []byte) {
	v := coord(y, s.Size)
	base := y * s.Size * 4
	for x := 0; x < s.Size; x++ {
		lum := Luminance(s, coord(x, s.Size), v)
		putGrey(dst, base+x*4, Encode(lum, s.Gamma))
	}
}

// band is a half-open range of rows.
type band struct{ start, end int }

// bands splits rows into at most n contiguous bands of near-equal height.
func bands(rows, n int) []band {
	if n < 1 {
		n = 1
	}
	if n > rows {
		n = rows
	}
	out := make([]band, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, band{start: i * rows / n, end: (i + 1) * rows / n})
	}
	return out
}
