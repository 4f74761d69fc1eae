package batch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/tauraamui/videobatch/pkg/log"
	"github.com/tauraamui/videobatch/pkg/videobackend"
	"github.com/tauraamui/xerror"
)

// Journal persists per-file outcomes. Satisfied by runlog.Repo.
type Journal interface {
	Record(runID, command, source string, frames int, runErr error) error
}

type Summary struct {
	RunID     string
	Command   string
	Processed int
	Errored   int
	Failures  map[string]error
}

func (s Summary) Failed() bool { return s.Errored > 0 }

type Runner struct {
	Backend  videobackend.Backend
	Fs       afero.Fs
	Journal  Journal
	Progress bool
}

// Run resolves the named command, constructs one instance for the whole
// run and processes every source in order. Configuration failures abort
// the run immediately; anything going wrong inside a single file is
// contained to that file and reflected in the summary instead.
func (r *Runner) Run(ctx context.Context, name string, sources []string, opts json.RawMessage) (Summary, error) {
	summary := Summary{
		RunID:    uuid.NewString(),
		Command:  name,
		Failures: map[string]error{},
	}

	desc, err := Lookup(name)
	if err != nil {
		return summary, err
	}

	cmd, err := desc.New(Deps{Backend: r.Backend, Fs: r.Fs}, sources, opts)
	if err != nil {
		return summary, xerror.Errorf("invalid %q configuration: %w", name, err)
	}

	for _, src := range sources {
		log.Info("processing: %s", src)
		frames, err := r.processFile(ctx, cmd, src)
		if err != nil {
			log.Error("%s failed after %d frame(s): %s", src, frames, err.Error())
			summary.Errored++
			summary.Failures[src] = err
		} else {
			log.Info("done: %s (%d frames)", src, frames)
		}
		summary.Processed++

		if r.Journal != nil {
			if jerr := r.Journal.Record(summary.RunID, name, src, frames, err); jerr != nil {
				log.Warn("unable to journal outcome for %s: %s", src, jerr.Error())
			}
		}
	}

	return summary, nil
}

func (r *Runner) processFile(ctx context.Context, cmd Command, path string) (int, error) {
	src, err := r.Backend.Open(ctx, path)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	name := filepath.Base(path)
	meta := FileMeta{
		Dimensions: src.Dimensions(),
		FPS:        src.FPS(),
		FrameCount: src.FrameCount(),
	}

	if err := cmd.StartFile(name, meta); err != nil {
		return 0, err
	}

	frames, pumpErr := r.pumpFrames(ctx, cmd, src, name, meta.FrameCount)

	// the done hook always runs once start has succeeded, so the
	// command releases whatever it opened even on a mid-stream failure
	doneErr := cmd.DoneFile(name, pumpErr != nil)

	if pumpErr != nil {
		return frames, pumpErr
	}
	return frames, doneErr
}

func (r *Runner) pumpFrames(ctx context.Context, cmd Command, src videobackend.Source, name string, total int) (int, error) {
	var bar *progressbar.ProgressBar
	if r.Progress {
		if total <= 0 {
			total = -1 // spinner when the container does not report a count
		}
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(name),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
		defer bar.Close()
	}

	i := 0
	for {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		f, err := src.Read()
		if errors.Is(err, io.EOF) {
			return i, nil
		}
		if err != nil {
			return i, xerror.Errorf("reading frame %d: %w", i, err)
		}

		if err := cmd.Frame(i, f); err != nil {
			return i, xerror.Errorf("frame %d: %w", i, err)
		}
		i++

		if bar != nil {
			bar.Add(1) //nolint
		}
	}
}
