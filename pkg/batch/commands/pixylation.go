package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tauraamui/videobatch/pkg/batch"
	"github.com/tauraamui/videobatch/pkg/hue"
	"github.com/tauraamui/videobatch/pkg/log"
	"github.com/tauraamui/videobatch/pkg/roi"
	"github.com/tauraamui/videobatch/pkg/videobackend"
	"github.com/tauraamui/videobatch/pkg/videoframe"
	"github.com/tauraamui/xerror"
)

const pixylationDoc = "detects pixels within configured hue ranges inside configured ROIs " +
	"and reports their brightness-weighted centroid per frame " +
	"('mode': CM only, 'colors': name -> [fromHue, toHue], 'ROIs': name -> rectangle or mask image path, " +
	"'maskdir'/'resultdir': output directories)"

const modeCentreOfMass = "CM"

type pixylationOpts struct {
	Mode      string                `json:"mode"`
	Colors    map[string][2]float64 `json:"colors"`
	ROIs      map[string]roi.Spec   `json:"ROIs"`
	MaskDir   string                `json:"maskdir"`
	ResultDir string                `json:"resultdir"`
}

type namedColor struct {
	name    string
	rng     hue.Range
	r, g, b uint8
}

type namedROI struct {
	name string
	spec roi.Spec
}

// resultRow is one (frame, ROI, colour) measurement. Centroid
// coordinates are 1-based; NaN marks "no detection", which is an
// expected outcome rather than a fault.
type resultRow struct {
	frame  int
	roi    string
	color  string
	x, y   float64
	weight float64
}

type pixylation struct {
	deps      batch.Deps
	colors    []namedColor // sorted by name so row order is deterministic
	rois      []namedROI   // likewise
	maskdir   string
	resultdir string

	// per-file state
	dims    videoframe.Dimensions
	outbase string
	masks   map[string]*roi.Mask
	sink    videobackend.Sink
	rows    []resultRow
}

func newPixylation(deps batch.Deps, sources []string, opts json.RawMessage) (batch.Command, error) {
	values := pixylationOpts{}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &values); err != nil {
			return nil, xerror.Errorf("unable to parse pixylation options: %w", err)
		}
	}

	mode := strings.TrimSpace(values.Mode)
	if len(mode) == 0 {
		mode = modeCentreOfMass
	}
	if mode != modeCentreOfMass {
		return nil, xerror.Errorf("unsupported pixylation 'mode' value %q: only %q is implemented", values.Mode, modeCentreOfMass)
	}

	if len(values.Colors) == 0 {
		return nil, xerror.New("no color ranges found in the configuration: the 'colors' key is required")
	}
	if len(values.ROIs) == 0 {
		return nil, xerror.New("no ROI settings found in the configuration: the 'ROIs' key is required")
	}

	colors := make([]namedColor, 0, len(values.Colors))
	for name, pair := range values.Colors {
		rng := hue.Range{From: pair[0], To: pair[1]}
		if err := rng.Validate(); err != nil {
			return nil, xerror.Errorf("color %q: %w", name, err)
		}
		r, g, b := rng.Color()
		colors = append(colors, namedColor{name: name, rng: rng, r: r, g: g, b: b})
	}
	sort.Slice(colors, func(i, j int) bool { return colors[i].name < colors[j].name })

	rois := make([]namedROI, 0, len(values.ROIs))
	for name, spec := range values.ROIs {
		rois = append(rois, namedROI{name: name, spec: spec})
	}
	sort.Slice(rois, func(i, j int) bool { return rois[i].name < rois[j].name })

	p := pixylation{
		deps:      deps,
		colors:    colors,
		rois:      rois,
		maskdir:   defaultDir(values.MaskDir),
		resultdir: defaultDir(values.ResultDir),
	}

	for _, c := range p.colors {
		log.Debug("pixylation color %s: hue [%v, %v)", c.name, c.rng.From, c.rng.To)
	}
	return &p, nil
}

func defaultDir(d string) string {
	if len(strings.TrimSpace(d)) == 0 {
		return "."
	}
	return d
}

func (p *pixylation) StartFile(name string, meta batch.FileMeta) error {
	p.dims = meta.Dimensions
	p.rows = nil
	p.sink = nil

	// ROI geometry is constant across a file's frames, so resolution
	// happens exactly once here; a mismatching mask image stops the
	// file before any frame is processed
	p.masks = map[string]*roi.Mask{}
	for _, r := range p.rois {
		mask, err := roi.Resolve(r.spec, meta.Dimensions, p.deps.Backend)
		if err != nil {
			return xerror.Errorf("ROI %q: %w", r.name, err)
		}
		p.masks[r.name] = mask
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	maskPath := filepath.Join(p.maskdir, fmt.Sprintf("MASK_%s.mp4", base))

	sink, err := p.deps.Backend.Create(maskPath, meta.Dimensions, meta.FPS)
	if err != nil {
		return err
	}
	p.sink = sink
	p.outbase = base
	return nil
}

func (p *pixylation) Frame(i int, f *videoframe.Frame) error {
	if fd := f.Dimensions(); fd != p.dims {
		return xerror.Errorf("frame %d is %dx%d, expected %dx%d", i, fd.W, fd.H, p.dims.W, p.dims.H)
	}

	w, h := p.dims.W, p.dims.H
	hs := make([]float64, w*h)
	sat := make([]float64, w*h)
	light := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := f.RGBAt(x, y)
			hs[y*w+x], sat[y*w+x], light[y*w+x] = hue.HSL(r, g, b)
		}
	}

	painted := videoframe.New(p.dims) // starts black

	for _, r := range p.rois {
		mask := p.masks[r.name]
		for _, c := range p.colors {
			var sx, sy, sw float64
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					if !mask.At(x, y) {
						continue
					}
					j := y*w + x
					if sat[j] < hue.SaturationFloor || light[j] < hue.LightnessFloor {
						continue
					}
					if !c.rng.Contains(hs[j]) {
						continue
					}
					weight := light[j]
					sx += float64(x) * weight
					sy += float64(y) * weight
					sw += weight
					painted.SetRGBAt(x, y, c.r, c.g, c.b)
				}
			}

			row := resultRow{frame: i, roi: r.name, color: c.name}
			if sw > 0 {
				row.x = sx/sw + 1
				row.y = sy/sw + 1
				row.weight = sw
			} else {
				row.x = math.NaN()
				row.y = math.NaN()
				row.weight = 0
			}
			p.rows = append(p.rows, row)
		}
	}

	return p.sink.Write(painted)
}

func (p *pixylation) DoneFile(name string, errored bool) error {
	flushErr := p.flushResults(errored)

	var closeErr error
	if p.sink != nil {
		closeErr = p.sink.Close()
		p.sink = nil
	}
	p.masks = nil
	p.rows = nil

	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (p *pixylation) flushResults(errored bool) error {
	resultName := fmt.Sprintf("Results_%s.csv", p.outbase)
	if errored {
		// partial results are better than none: the suffix marks the
		// table as incomplete
		resultName = fmt.Sprintf("Results_%s_partial.csv", p.outbase)
	}
	path := filepath.Join(p.resultdir, resultName)

	if err := p.deps.Fs.MkdirAll(p.resultdir, 0o755); err != nil {
		return xerror.Errorf("unable to create result directory %s: %w", p.resultdir, err)
	}

	file, err := p.deps.Fs.Create(path)
	if err != nil {
		return xerror.Errorf("could not open: %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"frame", "roi", "color", "cm_x", "cm_y", "weight"}); err != nil {
		return err
	}
	for _, row := range p.rows {
		record := []string{
			strconv.Itoa(row.frame),
			row.roi,
			row.color,
			formatMeasure(row.x),
			formatMeasure(row.y),
			formatMeasure(row.weight),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatMeasure(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
