package videobackend

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tauraamui/bgblur/internal/textdraw"
	"github.com/tauraamui/bgblur/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/font"
)

const (
	mockFrameWidth  = 640
	mockFrameHeight = 360
	mockLabelSize   = 28.0
	mockStreamLabel = "BGBLUR_MOCK_STREAM"
)

var timeNow = func() time.Time {
	return time.Now()
}

type mockVideoBackend struct{}

func (b *mockVideoBackend) Connect(cancel context.Context, addr string) (Connection, error) {
	face, err := textdraw.Face(mockLabelSize)
	if err != nil {
		return nil, err
	}
	return &mockVideoConnection{
		title:  addr,
		face:   face,
		isOpen: true,
	}, nil
}

func (b *mockVideoBackend) NewWriter() Writer {
	return &mockVideoWriter{}
}

type mockVideoConnection struct {
	mu              sync.Mutex
	uuid            string
	title           string
	face            font.Face
	isOpen          bool
	baseFrameCanvas *image.RGBA
}

func (mvc *mockVideoConnection) UUID() string {
	mvc.mu.Lock()
	defer mvc.mu.Unlock()
	if len(mvc.uuid) == 0 {
		mvc.uuid = uuid.NewString()
	}
	return mvc.uuid
}

func (mvc *mockVideoConnection) Read() (videoframe.Frame, error) {
	mvc.mu.Lock()
	defer mvc.mu.Unlock()
	if !mvc.isOpen {
		return nil, xerror.New("mock video connection is closed")
	}

	if mvc.baseFrameCanvas == nil {
		mvc.baseFrameCanvas = renderBaseFrameCanvas(mockFrameWidth, mockFrameHeight)
	}

	canvas := cloneImage(mvc.baseFrameCanvas)
	drawTextLayer(canvas, mvc.face, mvc.title)
	return videoframe.FromCanvas(canvas), nil
}

func (mvc *mockVideoConnection) IsOpen() bool {
	mvc.mu.Lock()
	defer mvc.mu.Unlock()
	return mvc.isOpen
}

func (mvc *mockVideoConnection) Close() error {
	mvc.mu.Lock()
	defer mvc.mu.Unlock()
	mvc.isOpen = false
	mvc.baseFrameCanvas = nil
	return nil
}

func drawTextLayer(canvas *image.RGBA, face font.Face, title string) {
	lineHeight := canvas.Rect.Dy() / 4
	textdraw.DrawCentredOnLine(canvas, face, image.White, 10, lineHeight, mockStreamLabel)
	textdraw.DrawCentredOnLine(canvas, face, image.White, 10, lineHeight*3, title)
	textdraw.DrawCentredOnLine(canvas, face, image.White, 10, lineHeight*5, timeNow().Format("2006-01-02 15:04:05.999999999"))
}

// renderBaseFrameCanvas draws three overlapping primary colour discs, which
// gives the segmentation models something with hard edges to key on.
func renderBaseFrameCanvas(w, h int) *image.RGBA {
	hw, hh := float64(w/2), float64(h/2)
	r := float64(h) / 4
	θ := 2 * math.Pi / 3
	discR := float64(h) / 2.5
	cr := &circle{hw - r*math.Sin(0), hh - r*math.Cos(0), discR}
	cg := &circle{hw - r*math.Sin(θ), hh - r*math.Cos(θ), discR}
	cb := &circle{hw - r*math.Sin(-θ), hh - r*math.Cos(-θ), discR}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.SetRGBA(x, y, color.RGBA{
				cr.Brightness(float64(x), float64(y)),
				cg.Brightness(float64(x), float64(y)),
				cb.Brightness(float64(x), float64(y)),
				255,
			})
		}
	}
	return img
}

func cloneImage(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

type circle struct {
	X, Y, R float64
}

func (c *circle) Brightness(x, y float64) uint8 {
	var dx, dy float64 = c.X - x, c.Y - y
	d := math.Sqrt(dx*dx+dy*dy) / c.R
	if d > 1 {
		return 0
	}
	return 255
}

// mockVideoWriter discards frames, keeping only a count of what was written.
type mockVideoWriter struct {
	mu      sync.Mutex
	path    string
	dims    videoframe.Dimensions
	written int
	open    bool
}

func (w *mockVideoWriter) Init(path, codec string, fps int, dims videoframe.Dimensions) error {
	if dims.Empty() {
		return xerror.New("cannot write video with empty dimensions")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.path = path
	w.dims = dims
	w.open = true
	return nil
}

func (w *mockVideoWriter) Write(frame videoframe.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return xerror.New("video writer not initialised")
	}
	if frame.Canvas() == nil {
		return xerror.New("cannot write closed frame")
	}
	if d := frame.Dimensions(); d != w.dims {
		return xerror.Errorf("frame size %dx%d does not match writer size %dx%d", d.W, d.H, w.dims.W, w.dims.H)
	}
	w.written++
	return nil
}

func (w *mockVideoWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open = false
	return nil
}

func (w *mockVideoWriter) framesWritten() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}
