package commands_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/tauraamui/videobatch/pkg/batch"
	_ "github.com/tauraamui/videobatch/pkg/batch/commands"
	"github.com/tauraamui/videobatch/pkg/videobackend"
	"github.com/tauraamui/videobatch/pkg/videoframe"
	"github.com/tauraamui/xerror"
)

// fakeBackend stands in for the external codec: saved images and sink
// writes are recorded in memory, grayscale loads are served from a map.
type fakeBackend struct {
	grays     map[string]*videoframe.Gray
	sinks     map[string]*fakeSink
	saved     map[string]*videoframe.Frame
	createErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		grays: map[string]*videoframe.Gray{},
		sinks: map[string]*fakeSink{},
		saved: map[string]*videoframe.Frame{},
	}
}

func (b *fakeBackend) Open(ctx context.Context, path string) (videobackend.Source, error) {
	return nil, xerror.New("fake backend cannot open sources")
}

func (b *fakeBackend) Create(path string, dims videoframe.Dimensions, fps float64) (videobackend.Sink, error) {
	if b.createErr != nil {
		return nil, b.createErr
	}
	sink := &fakeSink{dims: dims}
	b.sinks[path] = sink
	return sink, nil
}

func (b *fakeBackend) LoadGrayscale(path string) (*videoframe.Gray, error) {
	g, ok := b.grays[path]
	if !ok {
		return nil, xerror.Errorf("unable to read image %s as grayscale", path)
	}
	return g, nil
}

func (b *fakeBackend) SaveImage(path string, f *videoframe.Frame) error {
	b.saved[path] = f.Clone()
	return nil
}

type fakeSink struct {
	dims   videoframe.Dimensions
	frames []*videoframe.Frame
	closed bool
}

func (s *fakeSink) Write(f *videoframe.Frame) error {
	s.frames = append(s.frames, f.Clone())
	return nil
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

func testDeps(b *fakeBackend) batch.Deps {
	return batch.Deps{Backend: b, Fs: afero.NewMemMapFs()}
}

func construct(t *testing.T, name string, deps batch.Deps, opts string) (batch.Command, error) {
	t.Helper()
	desc, err := batch.Lookup(name)
	if err != nil {
		t.Fatalf("command %q is not registered: %v", name, err)
	}
	return desc.New(deps, nil, json.RawMessage(opts))
}

// uniformFrame fills every pixel's three channels with the same value,
// convenient for elementwise reduction checks.
func uniformFrame(dims videoframe.Dimensions, v uint8) *videoframe.Frame {
	f := videoframe.New(dims)
	data := f.Bytes()
	for i := range data {
		data[i] = v
	}
	return f
}

func meta(dims videoframe.Dimensions, count int) batch.FileMeta {
	return batch.FileMeta{Dimensions: dims, FPS: 24, FrameCount: count}
}
