package videoframe

import (
	"image"
	"sync"
	"time"
)

type Dimensions struct {
	W, H int
}

func (d Dimensions) Empty() bool {
	return d.W <= 0 || d.H <= 0
}

// Frame is a single video frame's pixels and size. Canvas returns nil once
// the frame has been closed.
type Frame interface {
	Canvas() *image.RGBA
	Dimensions() Dimensions
	Timestamp() int64
	Close()
}

var Timestamp = func() time.Time {
	return time.Now()
}

type canvasFrame struct {
	mu        sync.Mutex
	canvas    *image.RGBA
	timestamp int64
	onClose   func()
}

// New allocates a blank frame of the given size.
func New(w, h int) Frame {
	return FromCanvas(image.NewRGBA(image.Rect(0, 0, w, h)))
}

// FromCanvas wraps an existing RGBA image without copying. The frame takes
// ownership of the image.
func FromCanvas(canvas *image.RGBA) Frame {
	return &canvasFrame{canvas: canvas, timestamp: Timestamp().UnixNano()}
}

// Borrowed wraps an image owned by someone else. Closing the frame detaches
// the canvas and calls onClose but never touches the pixels.
func Borrowed(canvas *image.RGBA, onClose func()) Frame {
	return &canvasFrame{canvas: canvas, timestamp: Timestamp().UnixNano(), onClose: onClose}
}

func (f *canvasFrame) Canvas() *image.RGBA {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canvas
}

func (f *canvasFrame) Dimensions() Dimensions {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.canvas == nil {
		return Dimensions{}
	}
	b := f.canvas.Bounds()
	return Dimensions{W: b.Dx(), H: b.Dy()}
}

func (f *canvasFrame) Timestamp() int64 { return f.timestamp }

func (f *canvasFrame) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.canvas == nil {
		return
	}
	f.canvas = nil
	if f.onClose != nil {
		f.onClose()
	}
}
