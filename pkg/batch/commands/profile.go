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
	"github.com/tauraamui/videobatch/pkg/roi"
	"github.com/tauraamui/videobatch/pkg/videoframe"
	"github.com/tauraamui/xerror"
)

const profileDoc = "generates a Z-profile: the mean pixel intensity of each configured ROI per frame " +
	"('ROIs': name -> rectangle or mask image path, 'resultdir': output directory)"

type profileOpts struct {
	ROIs      map[string]roi.Spec `json:"ROIs"`
	ResultDir string              `json:"resultdir"`
}

type profile struct {
	deps      batch.Deps
	rois      []namedROI // sorted by name, fixing the column order
	resultdir string

	// per-file state
	dims    videoframe.Dimensions
	outbase string
	masks   map[string]*roi.Mask
	rows    [][]string
}

func newProfile(deps batch.Deps, sources []string, opts json.RawMessage) (batch.Command, error) {
	values := profileOpts{}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &values); err != nil {
			return nil, xerror.Errorf("unable to parse profile options: %w", err)
		}
	}

	if len(values.ROIs) == 0 {
		return nil, xerror.New("no ROI settings found in the configuration: the 'ROIs' key is required")
	}

	rois := make([]namedROI, 0, len(values.ROIs))
	for name, spec := range values.ROIs {
		rois = append(rois, namedROI{name: name, spec: spec})
	}
	sort.Slice(rois, func(i, j int) bool { return rois[i].name < rois[j].name })

	return &profile{deps: deps, rois: rois, resultdir: defaultDir(values.ResultDir)}, nil
}

func (p *profile) StartFile(name string, meta batch.FileMeta) error {
	p.dims = meta.Dimensions
	p.outbase = strings.TrimSuffix(name, filepath.Ext(name))
	p.rows = nil

	p.masks = map[string]*roi.Mask{}
	for _, r := range p.rois {
		mask, err := roi.Resolve(r.spec, meta.Dimensions, p.deps.Backend)
		if err != nil {
			return xerror.Errorf("ROI %q: %w", r.name, err)
		}
		p.masks[r.name] = mask
	}
	return nil
}

func (p *profile) Frame(i int, f *videoframe.Frame) error {
	if fd := f.Dimensions(); fd != p.dims {
		return xerror.Errorf("frame %d is %dx%d, expected %dx%d", i, fd.W, fd.H, p.dims.W, p.dims.H)
	}

	row := make([]string, 0, len(p.rois)+1)
	row = append(row, strconv.Itoa(i))
	for _, r := range p.rois {
		row = append(row, formatMeasure(meanIntensity(f, p.masks[r.name])))
	}
	p.rows = append(p.rows, row)
	return nil
}

// meanIntensity averages all three channel values over the mask's
// pixels. An empty mask yields NaN rather than an error.
func meanIntensity(f *videoframe.Frame, mask *roi.Mask) float64 {
	dims := f.Dimensions()
	var sum float64
	var n int
	for y := 0; y < dims.H; y++ {
		for x := 0; x < dims.W; x++ {
			if !mask.At(x, y) {
				continue
			}
			r, g, b := f.RGBAt(x, y)
			sum += float64(r) + float64(g) + float64(b)
			n += 3
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func (p *profile) DoneFile(name string, errored bool) error {
	resultName := fmt.Sprintf("Profile_%s.csv", p.outbase)
	if errored {
		resultName = fmt.Sprintf("Profile_%s_partial.csv", p.outbase)
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

	header := make([]string, 0, len(p.rois)+1)
	header = append(header, "frame")
	for _, r := range p.rois {
		header = append(header, r.name)
	}

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range p.rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()

	p.rows = nil
	p.masks = nil
	return w.Error()
}
