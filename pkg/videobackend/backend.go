// Package videobackend hides the external video codec behind the Backend
// interface: opening a file as an ordered frame source, writing frames out
// to a playable container, and loading/saving still images.
package videobackend

import (
	"context"

	"github.com/spf13/afero"
	"github.com/tauraamui/videobatch/pkg/videoframe"
)

var fs = afero.NewOsFs()

// Source yields a file's frames strictly in temporal order starting at
// index 0. Read returns io.EOF once the stream is exhausted.
type Source interface {
	Read() (*videoframe.Frame, error)
	Dimensions() videoframe.Dimensions
	FrameCount() int
	FPS() float64
	Close() error
}

// Sink accepts a sequence of frames and finalises them into a playable
// container on close.
type Sink interface {
	Write(*videoframe.Frame) error
	Close() error
}

type Backend interface {
	Open(ctx context.Context, path string) (Source, error)
	Create(path string, dims videoframe.Dimensions, fps float64) (Sink, error)
	LoadGrayscale(path string) (*videoframe.Gray, error)
	SaveImage(path string, f *videoframe.Frame) error
}

func Default() Backend {
	return OpenCV()
}

func OpenCV() Backend {
	return &openCVBackend{}
}

func Mock() Backend {
	return &mockBackend{}
}

func Resolve(t string) Backend {
	switch t {
	case "mock":
		return Mock()
	default:
		return Default()
	}
}
