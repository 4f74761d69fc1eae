package videobackend

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"path/filepath"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/tauraamui/videobatch/pkg/videoframe"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const (
	mockFrameWidth  = 320
	mockFrameHeight = 240
	mockFrameCount  = 30
	mockFPS         = 24.0
)

// mockBackend yields a fixed count of synthetic rendered frames per
// source and records written frames in memory. Selected with the
// "mock" backend type for dry runs and tests.
type mockBackend struct{}

func (b *mockBackend) Open(ctx context.Context, path string) (Source, error) {
	return &mockSource{
		uuid:  uuid.NewString(),
		label: filepath.Base(path),
		base:  renderBaseFrameCanvas(mockFrameWidth, mockFrameHeight),
	}, nil
}

func (b *mockBackend) Create(path string, dims videoframe.Dimensions, fps float64) (Sink, error) {
	return &mockSink{path: path, dims: dims}, nil
}

func (b *mockBackend) LoadGrayscale(path string) (*videoframe.Gray, error) {
	// all-white mask matching the synthetic frame size
	data := make([]uint8, mockFrameWidth*mockFrameHeight)
	for i := range data {
		data[i] = 0xFF
	}
	return videoframe.GrayFromBytes(videoframe.Dimensions{W: mockFrameWidth, H: mockFrameHeight}, data)
}

func (b *mockBackend) SaveImage(path string, f *videoframe.Frame) error {
	dims := f.Dimensions()
	img := image.NewRGBA(image.Rect(0, 0, dims.W, dims.H))
	for y := 0; y < dims.H; y++ {
		for x := 0; x < dims.W; x++ {
			r, g, bl := f.RGBAt(x, y)
			img.Set(x, y, color.RGBA{r, g, bl, 255})
		}
	}

	buff := bytes.Buffer{}
	if err := png.Encode(&buff, img); err != nil {
		return xerror.Errorf("unable to encode %s: %w", path, err)
	}
	return afero.WriteFile(fs, path, buff.Bytes(), 0o644)
}

type mockSource struct {
	uuid  string
	label string
	base  image.Image
	idx   int
}

func (s *mockSource) Read() (*videoframe.Frame, error) {
	if s.idx >= mockFrameCount {
		return nil, io.EOF
	}

	img, err := drawTextLayerOntoBaseFrameClone(s.base, s.label)
	if err != nil {
		return nil, err
	}
	s.idx++
	return frameFromImage(img), nil
}

func (s *mockSource) Dimensions() videoframe.Dimensions {
	return videoframe.Dimensions{W: mockFrameWidth, H: mockFrameHeight}
}

func (s *mockSource) FrameCount() int { return mockFrameCount }

func (s *mockSource) FPS() float64 { return mockFPS }

func (s *mockSource) Close() error { return nil }

type mockSink struct {
	path   string
	dims   videoframe.Dimensions
	frames []*videoframe.Frame
	closed bool
}

func (s *mockSink) Write(f *videoframe.Frame) error {
	if s.closed {
		return xerror.Errorf("sink %s already closed", s.path)
	}
	if fd := f.Dimensions(); fd != s.dims {
		return xerror.Errorf("frame is %dx%d but sink %s was opened at %dx%d", fd.W, fd.H, s.path, s.dims.W, s.dims.H)
	}
	s.frames = append(s.frames, f.Clone())
	return nil
}

func (s *mockSink) Close() error {
	s.closed = true
	return nil
}

func frameFromImage(img *image.RGBA) *videoframe.Frame {
	b := img.Bounds()
	frame := videoframe.New(videoframe.Dimensions{W: b.Dx(), H: b.Dy()})
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := img.RGBAAt(x, y)
			frame.SetRGBAt(x, y, c.R, c.G, c.B)
		}
	}
	return frame
}

func renderBaseFrameCanvas(w, h int) image.Image {
	var hw, hh float64 = float64(w / 2), float64(h / 2)
	r := float64(h) / 2
	θ := 2 * math.Pi / 3
	cr := &circle{hw - r*math.Sin(0), hh - r*math.Cos(0), r * 1.5}
	cg := &circle{hw - r*math.Sin(θ), hh - r*math.Cos(θ), r * 1.5}
	cb := &circle{hw - r*math.Sin(-θ), hh - r*math.Cos(-θ), r * 1.5}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			c := color.RGBA{
				cr.Brightness(float64(x), float64(y)),
				cg.Brightness(float64(x), float64(y)),
				cb.Brightness(float64(x), float64(y)),
				255,
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func drawTextLayerOntoBaseFrameClone(base image.Image, label string) (*image.RGBA, error) {
	baseClone := cloneImage(base)
	if err := drawText(baseClone, 5, 40, "MOCK_STREAM"); err != nil {
		return nil, xerror.Errorf("unable to draw text onto in-mem image for mock stream: %w", err)
	}
	if err := drawText(baseClone, 5, 120, label); err != nil {
		return nil, xerror.Errorf("unable to draw text onto in-mem image for mock stream: %w", err) //nolint
	}
	return baseClone, nil
}

func cloneImage(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

func drawText(canvas *image.RGBA, x, y int, text string) error {
	fontFace, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return err
	}

	fontDrawer := &font.Drawer{
		Dst: canvas,
		Src: image.White,
		Face: truetype.NewFace(fontFace, &truetype.Options{
			Size:    24.0,
			Hinting: font.HintingFull,
		}),
	}
	textBounds, _ := fontDrawer.BoundString(text)
	textHeight := textBounds.Max.Y - textBounds.Min.Y
	yPosition := fixed.I((y)-textHeight.Ceil())/2 + fixed.I(textHeight.Ceil())
	fontDrawer.Dot = fixed.Point26_6{
		X: fixed.I(x),
		Y: yPosition,
	}
	fontDrawer.DrawString(text)
	return nil
}

type circle struct {
	X, Y, R float64
}

func (c *circle) Brightness(x, y float64) uint8 {
	var dx, dy float64 = c.X - x, c.Y - y
	d := math.Sqrt(dx*dx+dy*dy) / c.R
	if d > 1 {
		return 0
	}
	return 255
}
