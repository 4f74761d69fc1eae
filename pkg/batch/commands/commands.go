// Package commands holds the built-in frame-conversion commands and
// registers them with the batch registry at load time.
package commands

import "github.com/tauraamui/videobatch/pkg/batch"

func init() {
	batch.Register(batch.Descriptor{Name: "projection", Doc: projectionDoc, New: newProjection})
	batch.Register(batch.Descriptor{Name: "pixylation", Doc: pixylationDoc, New: newPixylation})
	batch.Register(batch.Descriptor{Name: "profile", Doc: profileDoc, New: newProfile})
}
