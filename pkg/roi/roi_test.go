package roi_test

import (
	"encoding/json"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/videobatch/pkg/roi"
	"github.com/tauraamui/videobatch/pkg/videoframe"
	"github.com/tauraamui/xerror"
)

type fakeLoader struct {
	gray *videoframe.Gray
	err  error
}

func (f fakeLoader) LoadGrayscale(path string) (*videoframe.Gray, error) {
	return f.gray, f.err
}

func TestSpecUnmarshalRectangle(t *testing.T) {
	is := is.New(t)

	var spec roi.Spec
	is.NoErr(json.Unmarshal([]byte(`{"x":1,"y":2,"w":3,"h":4}`), &spec))
	is.True(spec.Rect != nil)
	is.Equal(*spec.Rect, roi.Rect{X: 1, Y: 2, W: 3, H: 4})
	is.Equal(spec.Path, "")
}

func TestSpecUnmarshalMaskPath(t *testing.T) {
	is := is.New(t)

	var spec roi.Spec
	is.NoErr(json.Unmarshal([]byte(`"masks/arena.png"`), &spec))
	is.Equal(spec.Path, "masks/arena.png")
	is.True(spec.Rect == nil)
}

func TestResolveRectangle(t *testing.T) {
	is := is.New(t)

	dims := videoframe.Dimensions{W: 6, H: 4}
	m, err := roi.Resolve(roi.Spec{Rect: &roi.Rect{X: 1, Y: 1, W: 2, H: 2}}, dims, nil)
	is.NoErr(err)
	is.Equal(m.Dimensions(), dims)
	is.Equal(m.Count(), 4)
	is.True(m.At(1, 1))
	is.True(m.At(2, 2))
	is.True(!m.At(3, 1)) // half open on the right
	is.True(!m.At(0, 0))
}

func TestResolveRectangleIsPureAndIdempotent(t *testing.T) {
	is := is.New(t)

	dims := videoframe.Dimensions{W: 8, H: 8}
	spec := roi.Spec{Rect: &roi.Rect{X: 2, Y: 3, W: 4, H: 2}}

	first, err := roi.Resolve(spec, dims, nil)
	is.NoErr(err)
	second, err := roi.Resolve(spec, dims, nil)
	is.NoErr(err)

	for y := 0; y < dims.H; y++ {
		for x := 0; x < dims.W; x++ {
			is.Equal(first.At(x, y), second.At(x, y))
		}
	}
}

func TestResolveRectangleOutOfBounds(t *testing.T) {
	is := is.New(t)

	dims := videoframe.Dimensions{W: 6, H: 4}

	_, err := roi.Resolve(roi.Spec{Rect: &roi.Rect{X: 5, Y: 0, W: 2, H: 1}}, dims, nil)
	is.True(err != nil)

	_, err = roi.Resolve(roi.Spec{Rect: &roi.Rect{X: 0, Y: 3, W: 1, H: 2}}, dims, nil)
	is.True(err != nil)

	_, err = roi.Resolve(roi.Spec{Rect: &roi.Rect{X: -1, Y: 0, W: 1, H: 1}}, dims, nil)
	is.True(err != nil)
}

func TestResolveMaskImage(t *testing.T) {
	is := is.New(t)

	dims := videoframe.Dimensions{W: 3, H: 2}
	gray, err := videoframe.GrayFromBytes(dims, []uint8{0, 255, 0, 255, 0, 255})
	is.NoErr(err)

	m, err := roi.Resolve(roi.Spec{Path: "mask.png"}, dims, fakeLoader{gray: gray})
	is.NoErr(err)
	is.Equal(m.Count(), 3)
	is.True(m.At(1, 0))
	is.True(m.At(0, 1))
	is.True(!m.At(0, 0))
}

func TestResolveMaskImageThresholdsAtMidpointOfRange(t *testing.T) {
	is := is.New(t)

	// noisy mask: "black" pixels at 10, "white" at 200; midpoint is 105
	dims := videoframe.Dimensions{W: 2, H: 2}
	gray, err := videoframe.GrayFromBytes(dims, []uint8{10, 200, 104, 106})
	is.NoErr(err)

	m, err := roi.Resolve(roi.Spec{Path: "mask.png"}, dims, fakeLoader{gray: gray})
	is.NoErr(err)
	is.True(!m.At(0, 0))
	is.True(m.At(1, 0))
	is.True(!m.At(0, 1))
	is.True(m.At(1, 1))
}

func TestResolveMaskImageDimensionMismatchIsFatal(t *testing.T) {
	is := is.New(t)

	gray, err := videoframe.GrayFromBytes(videoframe.Dimensions{W: 2, H: 2}, make([]uint8, 4))
	is.NoErr(err)

	_, err = roi.Resolve(roi.Spec{Path: "mask.png"}, videoframe.Dimensions{W: 4, H: 4}, fakeLoader{gray: gray})
	is.True(err != nil)
}

func TestResolveMaskImageLoadFailure(t *testing.T) {
	is := is.New(t)

	_, err := roi.Resolve(
		roi.Spec{Path: "missing.png"},
		videoframe.Dimensions{W: 2, H: 2},
		fakeLoader{err: xerror.New("no such file")},
	)
	is.True(err != nil)
}

func TestResolveEmptySpec(t *testing.T) {
	is := is.New(t)

	_, err := roi.Resolve(roi.Spec{}, videoframe.Dimensions{W: 2, H: 2}, nil)
	is.True(err != nil)
}
