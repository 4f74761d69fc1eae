package videoframe_test

import (
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/videobatch/pkg/videoframe"
)

func TestFromBytesRejectsWrongSize(t *testing.T) {
	is := is.New(t)

	_, err := videoframe.FromBytes(videoframe.Dimensions{W: 2, H: 2}, make([]uint8, 11))
	is.True(err != nil)

	f, err := videoframe.FromBytes(videoframe.Dimensions{W: 2, H: 2}, make([]uint8, 12))
	is.NoErr(err)
	is.Equal(f.Dimensions(), videoframe.Dimensions{W: 2, H: 2})
}

func TestPixelRoundTrip(t *testing.T) {
	is := is.New(t)

	f := videoframe.New(videoframe.Dimensions{W: 3, H: 2})
	f.SetRGBAt(2, 1, 10, 20, 30)

	r, g, b := f.RGBAt(2, 1)
	is.Equal(r, uint8(10))
	is.Equal(g, uint8(20))
	is.Equal(b, uint8(30))

	r, g, b = f.RGBAt(0, 0)
	is.Equal(r, uint8(0))
	is.Equal(g, uint8(0))
	is.Equal(b, uint8(0))
}

func TestCloneDoesNotShareBuffer(t *testing.T) {
	is := is.New(t)

	f := videoframe.New(videoframe.Dimensions{W: 2, H: 2})
	f.SetRGBAt(0, 0, 255, 0, 0)

	c := f.Clone()
	c.SetRGBAt(0, 0, 0, 255, 0)

	r, g, _ := f.RGBAt(0, 0)
	is.Equal(r, uint8(255))
	is.Equal(g, uint8(0))
}

func TestGrayFromBytes(t *testing.T) {
	is := is.New(t)

	_, err := videoframe.GrayFromBytes(videoframe.Dimensions{W: 4, H: 4}, make([]uint8, 15))
	is.True(err != nil)

	data := make([]uint8, 16)
	data[5] = 0xFF
	g, err := videoframe.GrayFromBytes(videoframe.Dimensions{W: 4, H: 4}, data)
	is.NoErr(err)
	is.Equal(g.At(1, 1), uint8(0xFF))
	is.Equal(g.At(0, 0), uint8(0))
}
