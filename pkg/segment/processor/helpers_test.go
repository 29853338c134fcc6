package processor_test

import (
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/tauraamui/bgblur/pkg/log"
	"github.com/tauraamui/bgblur/pkg/segment/processor"
	"github.com/tauraamui/bgblur/pkg/segment/worker"
	"github.com/tauraamui/bgblur/pkg/video/videoframe"
)

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

func overloadWarnLog(overload func(string, ...interface{})) func() {
	logWarnRef := log.Warn
	log.Warn = overload
	return func() { log.Warn = logWarnRef }
}

func overloadErrorLog(overload func(string, ...interface{})) func() {
	logErrorRef := log.Error
	log.Error = overload
	return func() { log.Error = logErrorRef }
}

// testRuntime stands in for the segmentation model. Every prediction is a
// mask of the input size filled with maskValue.
type testRuntime struct {
	mu         sync.Mutex
	initOK     bool
	status     worker.LoadStatus
	maskValue  uint8
	predictErr error
	block      chan struct{}
	predicts   int
	loads      int
}

func newTestRuntime() *testRuntime {
	return &testRuntime{initOK: true, status: worker.StatusLoaded, maskValue: 255}
}

func (r *testRuntime) Initialize(worker.InitializeParams) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initOK
}

func (r *testRuntime) LoadModel(worker.ModelParams) worker.LoadStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	return r.status
}

func (r *testRuntime) Predict(input *image.RGBA) (*image.Alpha, error) {
	r.mu.Lock()
	r.predicts++
	block, value, err := r.block, r.maskValue, r.predictErr
	r.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	mask := image.NewAlpha(input.Rect)
	for i := range mask.Pix {
		mask.Pix[i] = value
	}
	return mask, nil
}

func (r *testRuntime) Destroy() {}

func (r *testRuntime) predictCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.predicts
}

func (r *testRuntime) loadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

func (r *testRuntime) setBlock(block chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.block = block
}

func (r *testRuntime) setPredictErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictErr = err
}

// recordingConn counts every request sent through it.
type recordingConn struct {
	worker.Conn
	mu   sync.Mutex
	sent []worker.Tag
}

func (c *recordingConn) Send(req worker.Request) error {
	c.mu.Lock()
	c.sent = append(c.sent, req.Msg)
	c.mu.Unlock()
	return c.Conn.Send(req)
}

func (c *recordingConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *recordingConn) sentTags() []worker.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]worker.Tag{}, c.sent...)
}

// silentConn accepts requests and never responds.
type silentConn struct {
	responses chan worker.Response
	closeOnce sync.Once
}

func newSilentConn() *silentConn {
	return &silentConn{responses: make(chan worker.Response)}
}

func (c *silentConn) Send(worker.Request) error         { return nil }
func (c *silentConn) Responses() <-chan worker.Response { return c.responses }
func (c *silentConn) Close() error {
	c.closeOnce.Do(func() { close(c.responses) })
	return nil
}

type recordingDiagnostics struct {
	mu          sync.Mutex
	states      []processor.State
	issued      int
	completed   int
	failed      int
	processed   int
	inferred    int
	passThrough map[string]int
	fps         []float64
}

func newRecordingDiagnostics() *recordingDiagnostics {
	return &recordingDiagnostics{passThrough: map[string]int{}}
}

func (d *recordingDiagnostics) StateChanged(_ string, s processor.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states = append(d.states, s)
}

func (d *recordingDiagnostics) PredictIssued(string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.issued++
}

func (d *recordingDiagnostics) PredictCompleted(_ string, err error, _ time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completed++
	if err != nil {
		d.failed++
	}
}

func (d *recordingDiagnostics) FrameProcessed(_ string, inferred bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.processed++
	if inferred {
		d.inferred++
	}
}

func (d *recordingDiagnostics) FramePassedThrough(_ string, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.passThrough[reason]++
}

func (d *recordingDiagnostics) FPSUpdated(_ string, fps float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fps = append(d.fps, fps)
}

func (d *recordingDiagnostics) stateHistory() []processor.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]processor.State{}, d.states...)
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

// checkerFrame is an opaque frame with enough texture that blurring it
// changes every pixel near a square edge.
func checkerFrame(w, h int) videoframe.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 10, G: 20, B: 30, A: 255}
			if (x/4+y/4)%2 == 0 {
				c = color.RGBA{R: 240, G: 230, B: 220, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return videoframe.FromCanvas(img)
}

type panickyFrame struct{ videoframe.Frame }

func (panickyFrame) Dimensions() videoframe.Dimensions { panic("frame went away") }
