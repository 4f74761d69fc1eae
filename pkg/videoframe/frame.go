package videoframe

import "github.com/tauraamui/xerror"

type Dimensions struct {
	W, H int
}

// Frame is an 8-bit RGB pixel buffer, interleaved and row-major.
// Frames handed out by a source are never mutated by the engine;
// commands derive new frames instead of writing into their input.
type Frame struct {
	dims Dimensions
	data []uint8
}

func New(dims Dimensions) *Frame {
	return &Frame{dims: dims, data: make([]uint8, dims.W*dims.H*3)}
}

// FromBytes wraps an interleaved RGB byte slice without copying it.
func FromBytes(dims Dimensions, data []uint8) (*Frame, error) {
	if want := dims.W * dims.H * 3; len(data) != want {
		return nil, xerror.Errorf(
			"frame data size mismatch: have %d bytes, want %d for %dx%d", len(data), want, dims.W, dims.H,
		)
	}
	return &Frame{dims: dims, data: data}, nil
}

func (f *Frame) Dimensions() Dimensions { return f.dims }

func (f *Frame) Bytes() []uint8 { return f.data }

func (f *Frame) RGBAt(x, y int) (r, g, b uint8) {
	i := (y*f.dims.W + x) * 3
	return f.data[i], f.data[i+1], f.data[i+2]
}

func (f *Frame) SetRGBAt(x, y int, r, g, b uint8) {
	i := (y*f.dims.W + x) * 3
	f.data[i] = r
	f.data[i+1] = g
	f.data[i+2] = b
}

func (f *Frame) Clone() *Frame {
	c := New(f.dims)
	copy(c.data, f.data)
	return c
}

// Gray is a single channel 8-bit pixel buffer, used for ROI mask images.
type Gray struct {
	dims Dimensions
	data []uint8
}

func GrayFromBytes(dims Dimensions, data []uint8) (*Gray, error) {
	if want := dims.W * dims.H; len(data) != want {
		return nil, xerror.Errorf(
			"grayscale data size mismatch: have %d bytes, want %d for %dx%d", len(data), want, dims.W, dims.H,
		)
	}
	return &Gray{dims: dims, data: data}, nil
}

func (g *Gray) Dimensions() Dimensions { return g.dims }

func (g *Gray) At(x, y int) uint8 { return g.data[y*g.dims.W+x] }

func (g *Gray) Bytes() []uint8 { return g.data }
