// Package roi resolves region-of-interest specifications into boolean
// selection masks sized to a file's frames. A region is either a rectangle
// in pixel coordinates or a path to a black/white mask image whose white
// pixels define membership.
package roi

import (
	"encoding/json"

	"github.com/tauraamui/videobatch/pkg/videoframe"
	"github.com/tauraamui/xerror"
)

type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Spec is either a rectangle or a mask image path; it unmarshals from a
// JSON object {"x":..,"y":..,"w":..,"h":..} or from a JSON string.
type Spec struct {
	Rect *Rect
	Path string
}

func (s *Spec) UnmarshalJSON(data []byte) error {
	var path string
	if err := json.Unmarshal(data, &path); err == nil {
		s.Path = path
		s.Rect = nil
		return nil
	}

	rect := Rect{}
	if err := json.Unmarshal(data, &rect); err != nil {
		return xerror.Errorf("ROI spec must be a rectangle object or a mask image path: %w", err)
	}
	s.Rect = &rect
	s.Path = ""
	return nil
}

// Loader loads a mask image as a grayscale pixel buffer. Satisfied by
// videobackend.Backend.
type Loader interface {
	LoadGrayscale(path string) (*videoframe.Gray, error)
}

// Mask is a resolved boolean selection sized exactly to a frame.
type Mask struct {
	dims  videoframe.Dimensions
	cells []bool
}

func (m *Mask) Dimensions() videoframe.Dimensions { return m.dims }

func (m *Mask) At(x, y int) bool { return m.cells[y*m.dims.W+x] }

func (m *Mask) Count() int {
	n := 0
	for _, c := range m.cells {
		if c {
			n++
		}
	}
	return n
}

// Resolve turns a spec into a mask matching dims. Geometry violations are
// configuration errors: an out of bounds rectangle or a mask image whose
// dimensions differ from the frame's is never cropped or resized.
func Resolve(spec Spec, dims videoframe.Dimensions, loader Loader) (*Mask, error) {
	if spec.Rect != nil {
		return resolveRect(*spec.Rect, dims)
	}
	if len(spec.Path) > 0 {
		return resolveMaskImage(spec.Path, dims, loader)
	}
	return nil, xerror.New("empty ROI spec: provide a rectangle or a mask image path")
}

func resolveRect(r Rect, dims videoframe.Dimensions) (*Mask, error) {
	if r.X < 0 || r.Y < 0 || r.W < 0 || r.H < 0 {
		return nil, xerror.Errorf("ROI rectangle (x=%d, y=%d, w=%d, h=%d) has negative components", r.X, r.Y, r.W, r.H)
	}
	if r.X+r.W > dims.W || r.Y+r.H > dims.H {
		return nil, xerror.Errorf(
			"ROI rectangle (x=%d, y=%d, w=%d, h=%d) exceeds frame dimensions %dx%d",
			r.X, r.Y, r.W, r.H, dims.W, dims.H,
		)
	}

	m := Mask{dims: dims, cells: make([]bool, dims.W*dims.H)}
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			m.cells[y*dims.W+x] = true
		}
	}
	return &m, nil
}

func resolveMaskImage(path string, dims videoframe.Dimensions, loader Loader) (*Mask, error) {
	gray, err := loader.LoadGrayscale(path)
	if err != nil {
		return nil, xerror.Errorf("unable to load ROI mask image %s: %w", path, err)
	}

	if gd := gray.Dimensions(); gd != dims {
		return nil, xerror.Errorf(
			"ROI mask image %s is %dx%d but the frames are %dx%d", path, gd.W, gd.H, dims.W, dims.H,
		)
	}

	// threshold at the midpoint of the image's own value range so
	// near-white masks with compression noise still resolve cleanly
	min, max := gray.Bytes()[0], gray.Bytes()[0]
	for _, v := range gray.Bytes() {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mid := (int(min) + int(max)) / 2

	m := Mask{dims: dims, cells: make([]bool, dims.W*dims.H)}
	for i, v := range gray.Bytes() {
		if min == max {
			m.cells[i] = v > 0
			continue
		}
		m.cells[i] = int(v) > mid
	}
	return &m, nil
}
