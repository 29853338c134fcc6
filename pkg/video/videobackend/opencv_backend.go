package videobackend

import (
	"context"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/tauraamui/bgblur/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

type openCVBackend struct{}

func (b *openCVBackend) Connect(cancel context.Context, addr string) (Connection, error) {
	if err := probeStreamHost(cancel, addr); err != nil {
		return nil, err
	}
	conn := openCVConnection{mat: gocv.NewMat()}
	err := conn.connect(cancel, addr)
	if err != nil {
		conn.mat.Close()
		return nil, err
	}
	return &conn, nil
}

func (b *openCVBackend) NewWriter() Writer {
	return &openCVWriter{}
}

type openCVWriter struct {
	mu   sync.Mutex
	vw   *gocv.VideoWriter
	dims videoframe.Dimensions
}

func (w *openCVWriter) Init(path, codec string, fps int, dims videoframe.Dimensions) error {
	if dims.Empty() {
		return xerror.New("cannot write video with empty dimensions")
	}
	if err := ensureDirectoryPathExists(filepath.Dir(path)); err != nil {
		return err
	}

	vw, err := openVideoWriter(path, codec, float64(fps), dims.W, dims.H, true)
	if err != nil {
		return xerror.Errorf("unable to open video writer for %s: %w", path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.vw = vw
	w.dims = dims
	return nil
}

var openVideoWriter = func(filename, codec string, fps float64, width, height int, isColor bool) (*gocv.VideoWriter, error) {
	return gocv.VideoWriterFile(filename, codec, fps, width, height, isColor)
}

func ensureDirectoryPathExists(path string) error {
	err := fs.MkdirAll(path, os.ModePerm|os.ModeDir)
	if err == nil || os.IsExist(err) {
		return nil
	}
	return err
}

func (w *openCVWriter) Write(frame videoframe.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.vw == nil {
		return xerror.New("video writer not initialised")
	}

	canvas := frame.Canvas()
	if canvas == nil {
		return xerror.New("cannot write closed frame")
	}
	if d := frame.Dimensions(); d != w.dims {
		return xerror.Errorf("frame size %dx%d does not match writer size %dx%d", d.W, d.H, w.dims.W, w.dims.H)
	}

	mat, err := gocv.ImageToMatRGB(canvas)
	if err != nil {
		return xerror.Errorf("unable to convert Go image into OpenCV mat: %w", err)
	}
	defer mat.Close()
	return w.vw.Write(mat)
}

func (w *openCVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.vw == nil {
		return nil
	}
	err := w.vw.Close()
	w.vw = nil
	return err
}

type openCVConnection struct {
	uuid   string
	mu     sync.Mutex
	isOpen bool
	vc     *gocv.VideoCapture
	mat    gocv.Mat
}

func (c *openCVConnection) connect(cancel context.Context, addr string) error {
	connAndError := make(chan openVideoStreamResult, 1)
	go openVideoStream(addr, connAndError)
	select {
	case r := <-connAndError:
		if r.err != nil {
			return r.err
		}
		c.vc = r.vc
		c.isOpen = true
		return nil
	case <-cancel.Done():
		return xerror.New("connection cancelled")
	}
}

type openVideoStreamResult struct {
	vc  *gocv.VideoCapture
	err error
}

func openVideoStream(addr string, d chan openVideoStreamResult) {
	vc, err := openVideoCapture(addr)
	d <- openVideoStreamResult{vc: vc, err: err}
}

var openVideoCapture = func(addr string) (*gocv.VideoCapture, error) {
	return gocv.OpenVideoCapture(addr)
}

var readFromVideoConnection = func(vc *gocv.VideoCapture, mat *gocv.Mat) bool {
	if vc.IsOpened() {
		return vc.Read(mat)
	}
	return false
}

func (c *openCVConnection) UUID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.uuid) == 0 {
		c.uuid = uuid.NewString()
	}
	return c.uuid
}

func (c *openCVConnection) Read() (videoframe.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return nil, xerror.New("video connection is closed")
	}
	if ok := readFromVideoConnection(c.vc, &c.mat); !ok || c.mat.Empty() {
		return nil, xerror.New("unable to read from video connection")
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return nil, xerror.Errorf("unable to convert OpenCV mat into Go image: %w", err)
	}
	return videoframe.FromCanvas(toRGBA(img)), nil
}

// toRGBA returns img as an RGBA canvas anchored at the origin, copying only
// when it isn't one already.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

func (c *openCVConnection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isOpen {
		return c.vc.IsOpened()
	}
	return false
}

func (c *openCVConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return nil
	}
	c.isOpen = false
	c.mat.Close()
	return c.vc.Close()
}
