//go:build opencl

package raster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
)

// OpenCL evaluates the grating on a GPU (or an OpenCL CPU device) and encodes
// the result on the host.
type OpenCL struct {
	context    *cl.Context
	queue      *cl.CommandQueue
	program    *cl.Program
	kernel     *cl.Kernel
	out        *cl.MemObject
	capacity   int
	scratch    []float32
	deviceName string
}

const gaborKernelSource = `__kernel void gabor(
    const int size,
    const float cycles,
    const float theta,
    const float phase,
    const float contrast,
    const float sd,
    const int square,
    __global float* out)
{
    int idx = get_global_id(0);
    if (idx >= size * size) {
        return;
    }
    float u = ((float)(idx % size) + 0.5f) / (float)size - 0.5f;
    float v = ((float)(idx / size) + 0.5f) / (float)size - 0.5f;
    float x = u * cos(theta) + v * sin(theta);
    float w = sin(2.0f * M_PI_F * cycles * x + phase);
    if (square) {
        w = (w > 0.0f) ? 1.0f : ((w < 0.0f) ? -1.0f : 0.0f);
    }
    float env = exp(-(u * u + v * v) / (2.0f * sd * sd));
    out[idx] = 0.5f + 0.5f * contrast * w * env;
}`

// NewOpenCL picks the first GPU, or failing that the first CPU device, and
// builds the grating kernel for it.
func NewOpenCL() (*OpenCL, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, errors.New("no OpenCL platforms available")
	}
	device := firstDevice(platforms, cl.DeviceTypeGPU)
	if device == nil {
		device = firstDevice(platforms, cl.DeviceTypeCPU)
	}
	if device == nil {
		return nil, errors.New("no suitable OpenCL devices found")
	}

	clctx, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	r := &OpenCL{context: clctx, deviceName: device.Name()}
	r.queue, err = clctx.CreateCommandQueue(device, 0)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	r.program, err = clctx.CreateProgramWithSource([]string{gaborKernelSource})
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("creating OpenCL program: %w", err)
	}
	if err := r.program.BuildProgram([]*cl.Device{device}, ""); err != nil {
		r.Close()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, fmt.Errorf("building OpenCL program: %s", string(buildErr))
		}
		return nil, fmt.Errorf("building OpenCL program: %w", err)
	}
	r.kernel, err = r.program.CreateKernel("gabor")
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("creating OpenCL kernel: %w", err)
	}
	return r, nil
}

func firstDevice(platforms []*cl.Platform, kind cl.DeviceType) *cl.Device {
	for _, p := range platforms {
		devices, err := p.GetDevices(kind)
		if err != nil && err != cl.ErrDeviceNotFound {
			continue
		}
		if len(devices) > 0 {
			return devices[0]
		}
	}
	return nil
}

func (r *OpenCL) ensureCapacity(pixels int) error {
	if pixels <= r.capacity {
		return nil
	}
	if r.out != nil {
		r.out.Release()
		r.out = nil
	}
	out, err := r.context.CreateEmptyBuffer(cl.MemWriteOnly, pixels*int(unsafe.Sizeof(float32(0))))
	if err != nil {
		r.capacity = 0
		return fmt.Errorf("allocating OpenCL output buffer: %w", err)
	}
	r.out = out
	r.capacity = pixels
	r.scratch = make([]float32, pixels)
	return nil
}

// Rasterize fills dst with the patch described by s.
func (r *OpenCL) Rasterize(ctx context.Context, s Spec, dst []byte) error {
	s = s.withDefaults()
	if err := s.validate(dst); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	pixels := s.Size * s.Size
	if err := r.ensureCapacity(pixels); err != nil {
		return err
	}
	square := int32(0)
	if s.Square {
		square = 1
	}
	if err := r.kernel.SetArgs(
		int32(s.Size),
		float32(s.Params.Cycles),
		float32(s.Params.Orientation*math.Pi/180),
		float32(s.Params.Phase*math.Pi/180),
		float32(s.Params.Contrast),
		float32(s.Envelope),
		square,
		r.out,
	); err != nil {
		return fmt.Errorf("setting kernel arguments: %w", err)
	}
	if _, err := r.queue.EnqueueNDRangeKernel(r.kernel, nil, []int{pixels}, nil, nil); err != nil {
		return fmt.Errorf("enqueueing grating kernel: %w", err)
	}
	lum := r.scratch[:pixels]
	if _, err := r.queue.EnqueueReadBufferFloat32(r.out, true, 0, lum, nil); err != nil {
		return fmt.Errorf("reading grating buffer: %w", err)
	}
	for i, l := range lum {
		putGrey(dst, i*4, Encode(float64(l), s.Gamma))
	}
	return nil
}

// Close releases every OpenCL object held by r.
func (r *OpenCL) Close() {
	if r.out != nil {
		r.out.Release()
		r.out = nil
	}
	if r.kernel != nil {
		r.kernel.Release()
		r.kernel = nil
	}
	if r.program != nil {
		r.program.Release()
		r.program = nil
	}
	if r.queue != nil {
		r.queue.Release()
		r.queue = nil
	}
	if r.context != nil {
		r.context.Release()
		r.context = nil
	}
}

func (r *OpenCL) Name() string { return "opencl:" + r.deviceName }
