//go:build !opencl

package raster

import (
	"context"
	"errors"
)

type OpenCL struct{}

func NewOpenCL() (*OpenCL, error) {
	return nil, errors.New("OpenCL support is not enabled; rebuild with -tags opencl")
}

func (r *OpenCL) Rasterize(context.Context, Spec, []byte) error {
	return errors.New("OpenCL rasterizer unavailable")
}

func (r *OpenCL) Close() {}

func (r *OpenCL) Name() string { return "" }
