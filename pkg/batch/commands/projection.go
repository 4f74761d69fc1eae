package commands

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/tauraamui/videobatch/pkg/batch"
	"github.com/tauraamui/videobatch/pkg/videoframe"
	"github.com/tauraamui/xerror"
)

const (
	projectionMax          = "max"
	projectionMean         = "mean"
	projectionAvg          = "avg"
	projectionScale        = "scale"
	projectionMagentaScale = "magenta_scale"
)

const projectionDoc = "reduces each video to a single t-projection image " +
	"('type': max|mean|avg|scale|magenta_scale, 'outdir': output directory)"

type projectionOpts struct {
	Type   string `json:"type"`
	OutDir string `json:"outdir"`
}

// projection accumulates a running reduction as frames stream in, so a
// file of any length needs only two frames' worth of memory.
type projection struct {
	deps     batch.Deps
	projType string
	outdir   string

	// per-file state
	outname string
	dims    videoframe.Dimensions
	count   int
	maxBuf  []uint8   // max / magenta_scale blue channel
	sumBuf  []float64 // mean / scale / magenta_scale red+green channels
}

func newProjection(deps batch.Deps, sources []string, opts json.RawMessage) (batch.Command, error) {
	values := projectionOpts{}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &values); err != nil {
			return nil, xerror.Errorf("unable to parse projection options: %w", err)
		}
	}

	projType := strings.TrimSpace(values.Type)
	if len(projType) == 0 {
		projType = projectionMax
	}
	if projType == projectionAvg {
		projType = projectionMean
	}
	switch projType {
	case projectionMax, projectionMean, projectionScale, projectionMagentaScale:
	default:
		return nil, xerror.Errorf(
			"unknown projection 'type' value %q: must be one of max, mean, avg, scale, magenta_scale", values.Type,
		)
	}

	outdir := values.OutDir
	if len(strings.TrimSpace(outdir)) == 0 {
		outdir = "."
	}

	return &projection{deps: deps, projType: projType, outdir: outdir}, nil
}

func (p *projection) StartFile(name string, meta batch.FileMeta) error {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	p.outname = fmt.Sprintf("%s_%s.png", base, p.projType)
	p.dims = meta.Dimensions
	p.count = 0

	n := meta.Dimensions.W * meta.Dimensions.H * 3
	switch p.projType {
	case projectionMax:
		p.maxBuf = make([]uint8, n)
	case projectionMean, projectionScale:
		p.sumBuf = make([]float64, n)
	case projectionMagentaScale:
		// red and green accumulate as sums within sumBuf, blue is a
		// running max alongside
		p.sumBuf = make([]float64, n)
		p.maxBuf = make([]uint8, n)
	}
	return nil
}

func (p *projection) Frame(i int, f *videoframe.Frame) error {
	if fd := f.Dimensions(); fd != p.dims {
		return xerror.Errorf("frame %d is %dx%d, expected %dx%d", i, fd.W, fd.H, p.dims.W, p.dims.H)
	}

	data := f.Bytes()
	switch p.projType {
	case projectionMax:
		for j, v := range data {
			if v > p.maxBuf[j] {
				p.maxBuf[j] = v
			}
		}
	case projectionMean, projectionScale:
		for j, v := range data {
			p.sumBuf[j] += float64(v)
		}
	case projectionMagentaScale:
		for j := 0; j < len(data); j += 3 {
			p.sumBuf[j] += float64(data[j])
			p.sumBuf[j+1] += float64(data[j+1])
			if b := data[j+2]; b > p.maxBuf[j+2] {
				p.maxBuf[j+2] = b
			}
		}
	}
	p.count++
	return nil
}

func (p *projection) DoneFile(name string, errored bool) error {
	out := p.render()
	p.maxBuf = nil
	p.sumBuf = nil

	outname := p.outname
	if errored {
		// a partial reduction is still worth keeping, suffixed so it
		// cannot be mistaken for a complete one
		outname = strings.TrimSuffix(outname, ".png") + "_partial.png"
	}

	path := filepath.Join(p.outdir, outname)
	if err := p.deps.Backend.SaveImage(path, out); err != nil {
		return err
	}
	return nil
}

func (p *projection) render() *videoframe.Frame {
	out := videoframe.New(p.dims)
	data := out.Bytes()

	switch p.projType {
	case projectionMax:
		copy(data, p.maxBuf)
	case projectionMean:
		if p.count == 0 {
			break
		}
		// floating point division, rounded half up
		for j, v := range p.sumBuf {
			data[j] = uint8(math.Round(v / float64(p.count)))
		}
	case projectionScale:
		// tone map each channel to its own maximum
		var chMax [3]float64
		for j, v := range p.sumBuf {
			if c := j % 3; v > chMax[c] {
				chMax[c] = v
			}
		}
		for j, v := range p.sumBuf {
			if m := chMax[j%3]; m > 0 {
				data[j] = uint8(math.Round(v / m * 255))
			}
		}
	case projectionMagentaScale:
		var rMax, gMax float64
		for j := 0; j < len(p.sumBuf); j += 3 {
			if p.sumBuf[j] > rMax {
				rMax = p.sumBuf[j]
			}
			if p.sumBuf[j+1] > gMax {
				gMax = p.sumBuf[j+1]
			}
		}
		for j := 0; j < len(data); j += 3 {
			if rMax > 0 {
				data[j] = uint8(math.Round(p.sumBuf[j] / rMax * 255))
			}
			if gMax > 0 {
				data[j+1] = uint8(math.Round(p.sumBuf[j+1] / gMax * 255))
			}
			data[j+2] = p.maxBuf[j+2]
		}
	}
	return out
}
