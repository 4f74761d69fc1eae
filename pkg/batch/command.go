// Package batch is the execution engine: it keeps the registry of named
// frame-conversion commands and drives a chosen command through the
// per-file, per-frame lifecycle while streaming frames from the video
// backend.
package batch

import (
	"encoding/json"

	"github.com/spf13/afero"
	"github.com/tauraamui/videobatch/pkg/videobackend"
	"github.com/tauraamui/videobatch/pkg/videoframe"
)

// FileMeta describes the file whose frames are about to stream, resolved
// from the opened source. Commands use it to resolve ROIs and open
// writers at file start.
type FileMeta struct {
	Dimensions videoframe.Dimensions
	FPS        float64
	FrameCount int
}

// Command is a frame-conversion variant driven by the engine. One
// instance serves a whole run; per-file state is created in StartFile and
// torn down in DoneFile. DoneFile is invoked exactly once for every file
// whose StartFile succeeded, errored or not.
type Command interface {
	StartFile(name string, meta FileMeta) error
	Frame(i int, f *videoframe.Frame) error
	DoneFile(name string, errored bool) error
}

// Deps carries the external collaborators a command may need.
type Deps struct {
	Backend videobackend.Backend
	Fs      afero.Fs
}

// Constructor builds a command instance for one run. opts is the raw run
// configuration document; constructors decode the keys they recognise and
// reject invalid values up front, before any file is touched.
type Constructor func(deps Deps, sources []string, opts json.RawMessage) (Command, error)

type Descriptor struct {
	Name string
	Doc  string
	New  Constructor
}
