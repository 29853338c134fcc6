package process_test

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/tauraamui/bgblur/pkg/log"
	"github.com/tauraamui/bgblur/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

func overloadErrorLog(overload func(string, ...interface{})) func() {
	logErrorRef := log.Error
	log.Error = overload
	return func() { log.Error = logErrorRef }
}

func overloadDebugLog(overload func(string, ...interface{})) func() {
	logDebugRef := log.Debug
	log.Debug = overload
	return func() { log.Debug = logDebugRef }
}

func overloadInfoLog(overload func(string, ...interface{})) func() {
	logInfoRef := log.Info
	log.Info = overload
	return func() { log.Info = logInfoRef }
}

type mutexCounter struct {
	mu sync.Mutex
	n  int
}

func (c *mutexCounter) incr() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func (c *mutexCounter) v() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type mockCameraConn struct {
	title    string
	fps      int
	open     bool
	readErr  error
	reads    mutexCounter
	closes   mutexCounter
	readFunc func() (videoframe.Frame, error)
}

func (m *mockCameraConn) UUID() string    { return "mock-cam" }
func (m *mockCameraConn) Title() string   { return m.title }
func (m *mockCameraConn) FPS() int        { return m.fps }
func (m *mockCameraConn) IsOpen() bool    { return m.open }
func (m *mockCameraConn) IsClosing() bool { return !m.open }
func (m *mockCameraConn) Close() error    { return nil }

func (m *mockCameraConn) Read() (videoframe.Frame, error) {
	m.reads.incr()
	if m.readFunc != nil {
		return m.readFunc()
	}
	if m.readErr != nil {
		return nil, m.readErr
	}
	return videoframe.Borrowed(image.NewRGBA(image.Rect(0, 0, 4, 4)), m.closes.incr), nil
}

// reusingFilter writes an increasing grey level into one output buffer it
// hands back on every call.
type reusingFilter struct {
	mu     sync.Mutex
	calls  int
	canvas *image.RGBA
}

func newReusingFilter() *reusingFilter {
	return &reusingFilter{canvas: image.NewRGBA(image.Rect(0, 0, 4, 4))}
}

func (f *reusingFilter) Process(_ context.Context, frames []videoframe.Frame) []videoframe.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for i := range f.canvas.Pix {
		f.canvas.Pix[i] = uint8(f.calls)
	}
	out := append([]videoframe.Frame{}, frames...)
	out[0] = videoframe.Borrowed(f.canvas, nil)
	return out
}

func (f *reusingFilter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingWriter struct {
	mu      sync.Mutex
	inits   []videoframe.Dimensions
	writes  int
	shades  []color.RGBA
	closed  bool
	initErr error
}

func (w *recordingWriter) Init(path, codec string, fps int, dims videoframe.Dimensions) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inits = append(w.inits, dims)
	return w.initErr
}

func (w *recordingWriter) Write(frame videoframe.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	canvas := frame.Canvas()
	if canvas == nil {
		return xerror.New("closed frame")
	}
	w.writes++
	w.shades = append(w.shades, canvas.RGBAAt(0, 0))
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *recordingWriter) writeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

func (w *recordingWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("test timeout 3s limit exceeded")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}
