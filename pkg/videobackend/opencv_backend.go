package videobackend

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/tauraamui/videobatch/pkg/videoframe"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

const fourCC = "avc1"

type openCVBackend struct{}

func (b *openCVBackend) Open(ctx context.Context, path string) (Source, error) {
	src := openCVSource{path: path}
	if err := src.open(ctx, path); err != nil {
		return nil, err
	}
	return &src, nil
}

func (b *openCVBackend) Create(path string, dims videoframe.Dimensions, fps float64) (Sink, error) {
	if err := ensureDirectoryPathExists(filepath.Dir(path)); err != nil {
		return nil, err
	}

	vw, err := openVideoWriter(path, fourCC, fps, dims.W, dims.H, true)
	if err != nil {
		return nil, xerror.Errorf("unable to open video writer for %s: %w", path, err)
	}
	return &openCVSink{path: path, dims: dims, vw: vw}, nil
}

func (b *openCVBackend) LoadGrayscale(path string) (*videoframe.Gray, error) {
	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	if mat.Empty() {
		return nil, xerror.Errorf("unable to read image %s as grayscale", path)
	}
	defer mat.Close()

	dims := videoframe.Dimensions{W: mat.Cols(), H: mat.Rows()}
	return videoframe.GrayFromBytes(dims, mat.ToBytes())
}

func (b *openCVBackend) SaveImage(path string, f *videoframe.Frame) error {
	if err := ensureDirectoryPathExists(filepath.Dir(path)); err != nil {
		return err
	}

	dims := f.Dimensions()
	rgb, err := gocv.NewMatFromBytes(dims.H, dims.W, gocv.MatTypeCV8UC3, f.Bytes())
	if err != nil {
		return xerror.Errorf("unable to wrap frame data for %s: %w", path, err)
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)

	if ok := gocv.IMWrite(path, bgr); !ok {
		return xerror.Errorf("unable to write image: %s", path)
	}
	return nil
}

func ensureDirectoryPathExists(path string) error {
	err := fs.MkdirAll(path, os.ModePerm|os.ModeDir)
	if err == nil || os.IsExist(err) {
		return nil
	}
	return err
}

type openCVSource struct {
	path string
	vc   *gocv.VideoCapture
	mat  gocv.Mat
	rgb  gocv.Mat
	idx  int
}

func (s *openCVSource) open(ctx context.Context, path string) error {
	connAndError := make(chan openVideoStreamResult)
	go openVideoStream(path, connAndError)
	select {
	case r := <-connAndError:
		if r.err != nil {
			return xerror.Errorf("unable to open video source %s: %w", path, r.err)
		}
		s.vc = r.vc
		s.mat = gocv.NewMat()
		s.rgb = gocv.NewMat()
		return nil
	case <-ctx.Done():
		return xerror.Errorf("opening video source %s cancelled", path)
	}
}

type openVideoStreamResult struct {
	vc  *gocv.VideoCapture
	err error
}

func openVideoStream(path string, d chan openVideoStreamResult) {
	vc, err := openVideoCapture(path)
	d <- openVideoStreamResult{vc: vc, err: err}
}

var openVideoCapture = func(path string) (*gocv.VideoCapture, error) {
	return gocv.OpenVideoCapture(path)
}

var openVideoWriter = func(path, codec string, fps float64, width, height int, isColor bool) (*gocv.VideoWriter, error) {
	return gocv.VideoWriterFile(path, codec, fps, width, height, isColor)
}

var readFromVideoCapture = func(vc *gocv.VideoCapture, mat *gocv.Mat) bool {
	if vc.IsOpened() {
		return vc.Read(mat)
	}
	return false
}

func (s *openCVSource) Read() (*videoframe.Frame, error) {
	if ok := readFromVideoCapture(s.vc, &s.mat); !ok {
		return nil, io.EOF
	}
	if s.mat.Empty() {
		return nil, io.EOF
	}

	gocv.CvtColor(s.mat, &s.rgb, gocv.ColorBGRToRGB)
	dims := videoframe.Dimensions{W: s.rgb.Cols(), H: s.rgb.Rows()}

	// ToBytes copies, so the handed out frame does not alias the
	// capture buffer reused by the next read
	frame, err := videoframe.FromBytes(dims, s.rgb.ToBytes())
	if err != nil {
		return nil, xerror.Errorf("frame %d of %s: %w", s.idx, s.path, err)
	}
	s.idx++
	return frame, nil
}

func (s *openCVSource) Dimensions() videoframe.Dimensions {
	return videoframe.Dimensions{
		W: int(s.vc.Get(gocv.VideoCaptureFrameWidth)),
		H: int(s.vc.Get(gocv.VideoCaptureFrameHeight)),
	}
}

func (s *openCVSource) FrameCount() int {
	return int(s.vc.Get(gocv.VideoCaptureFrameCount))
}

func (s *openCVSource) FPS() float64 {
	return s.vc.Get(gocv.VideoCaptureFPS)
}

func (s *openCVSource) Close() error {
	s.mat.Close()
	s.rgb.Close()
	return s.vc.Close()
}

type openCVSink struct {
	path string
	dims videoframe.Dimensions
	vw   *gocv.VideoWriter
}

func (s *openCVSink) Write(f *videoframe.Frame) error {
	if fd := f.Dimensions(); fd != s.dims {
		return xerror.Errorf("frame is %dx%d but sink %s was opened at %dx%d", fd.W, fd.H, s.path, s.dims.W, s.dims.H)
	}

	rgb, err := gocv.NewMatFromBytes(s.dims.H, s.dims.W, gocv.MatTypeCV8UC3, f.Bytes())
	if err != nil {
		return xerror.Errorf("unable to wrap frame data for %s: %w", s.path, err)
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)

	return s.vw.Write(bgr)
}

func (s *openCVSink) Close() error {
	return s.vw.Close()
}
