// Package processor turns a live stream of frames into background blurred
// frames. Inference runs on an isolated worker while the frame path keeps
// delivering, reusing the last mask on throttled cycles and passing frames
// through untouched whenever it cannot composite.
package processor

import (
	"context"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tauraamui/bgblur/pkg/async"
	"github.com/tauraamui/bgblur/pkg/log"
	"github.com/tauraamui/bgblur/pkg/segment/compositor"
	"github.com/tauraamui/bgblur/pkg/segment/worker"
	"github.com/tauraamui/bgblur/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

var (
	ErrNotDrawable = xerror.New("frame has no drawable canvas")
	ErrDestroyed   = xerror.New("processor was destroyed")
	ErrEmptyMask   = xerror.New("worker returned an empty mask")
)

type Snapshot struct {
	ID                       string  `json:"id"`
	State                    State   `json:"state"`
	IsModelReady             bool    `json:"is_model_ready"`
	SourceWidth              int     `json:"source_width"`
	SourceHeight             int     `json:"source_height"`
	ScaledWidth              int     `json:"scaled_width"`
	ScaledHeight             int     `json:"scaled_height"`
	TargetWidth              int     `json:"target_width"`
	TargetHeight             int     `json:"target_height"`
	FramesSinceLastInference int     `json:"frames_since_last_inference"`
	ReduceFactor             int     `json:"reduce_factor"`
	BlurRadiusPx             float64 `json:"blur_radius_px"`
	ScaleFactor              float64 `json:"scale_factor"`
	FPSEstimate              float64 `json:"fps_estimate"`
	PredictInFlight          bool    `json:"predict_in_flight"`
}

type Processor struct {
	id       string
	settings Settings
	diag     Diagnostics

	channel     *worker.Channel
	masks       *async.Cell[*image.Alpha]
	predictErrs chan error
	inFlight    atomic.Bool
	stuckWarned atomic.Bool
	issuedAt    atomic.Int64

	fps     *fpsMeter
	stopFPS context.CancelFunc
	fpsDone chan struct{}

	done        chan struct{}
	destroyOnce sync.Once

	stateMu sync.Mutex
	state   State

	// statMu guards the values below, which are read by Snapshot while a
	// frame may be awaiting its mask.
	statMu         sync.Mutex
	source         videoframe.Dimensions
	target         videoframe.Dimensions
	scaleFactor    float64
	reduceFactor   int
	blurRadius     float64
	sinceInference int

	// mu serializes the frame path and guards the compositor and output.
	mu     sync.Mutex
	comp   *compositor.Compositor
	output videoframe.Frame
}

// New starts a processor over conn. It initializes the worker and loads the
// model in the background, passing frames through until the model is ready.
func New(conn worker.Conn, settings Settings) *Processor {
	settings = settings.normalized()

	p := &Processor{
		id:           uuid.NewString(),
		settings:     settings,
		diag:         settings.Diagnostics,
		masks:        async.NewCell[*image.Alpha](),
		predictErrs:  make(chan error, 1),
		fps:          newFPSMeter(timeNow()),
		fpsDone:      make(chan struct{}),
		done:         make(chan struct{}),
		scaleFactor:  settings.ScaleFactor,
		reduceFactor: settings.ReduceFactor,
		blurRadius:   settings.Strength,
		// the first frame always runs inference
		sinceInference: settings.ReduceFactor,
	}

	p.comp = compositor.New(
		settings.Model.InputWidth, settings.Model.InputHeight,
		compositor.WithBlurRadius(settings.Strength),
		compositor.WithFPSOverlay(settings.FPSOverlay),
		compositor.WithMaxOutputPixels(settings.MaxOutputPixels),
	)

	p.channel = worker.NewChannel(conn, worker.Handlers{
		OnInitialize: p.onInitialize,
		OnLoadModel:  p.onLoadModel,
		OnPredict:    p.onPredict,
	})

	ctx, cancel := context.WithCancel(context.Background())
	p.stopFPS = cancel
	go p.sampleFPS(ctx)

	p.setState(Initializing)
	log.Debug("Initializing segmentation processor [%s] with assets from [%s]", p.id, settings.PathPrefix)
	if err := p.channel.Initialize(settings.PathPrefix); err != nil {
		p.fail("Unable to send initialize to segmentation worker: %v", err)
	}

	return p
}

func (p *Processor) ID() string { return p.id }

func (p *Processor) State() State {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

func (p *Processor) IsReady() bool {
	return p.State() == Ready
}

func (p *Processor) setState(s State) bool {
	p.stateMu.Lock()
	if p.state == s || p.state == Destroyed || (p.state == Failed && s != Destroyed) {
		p.stateMu.Unlock()
		return false
	}
	p.state = s
	p.stateMu.Unlock()

	log.Debug("Segmentation processor [%s] is now [%s]", p.id, s)
	p.diag.StateChanged(p.id, s)
	return true
}

func (p *Processor) fail(format string, a ...interface{}) {
	if p.setState(Failed) {
		log.Error(format, a...)
	}
}

func (p *Processor) onInitialize(ok bool) {
	if !ok {
		p.fail("Segmentation worker failed to initialize, processor [%s] will pass frames through", p.id)
		return
	}
	if !p.setState(ModelLoading) {
		return
	}
	if err := p.channel.LoadModel(p.settings.Model); err != nil {
		p.fail("Unable to send model load to segmentation worker: %v", err)
	}
}

func (p *Processor) onLoadModel(status worker.LoadStatus) {
	if status != worker.StatusLoaded {
		p.fail("Segmentation worker failed to load model [%s], status: %s", p.settings.Model.URL, status)
		return
	}
	if p.setState(Ready) {
		log.Info("Segmentation processor [%s] ready with model [%s]", p.id, p.settings.Model.URL)
	}
}

func (p *Processor) onPredict(mask *image.Alpha, err error) {
	latency := time.Duration(timeNow().UnixNano() - p.issuedAt.Load())
	p.inFlight.Store(false)
	p.stuckWarned.Store(false)

	if err == nil && (mask == nil || mask.Rect.Empty()) {
		err = ErrEmptyMask
	}
	p.diag.PredictCompleted(p.id, err, latency)

	if err != nil {
		select {
		case p.predictErrs <- err:
		default:
		}
		return
	}
	p.masks.Publish(mask)
}

// Process filters the first frame of frames. It returns frames unchanged
// whenever the frame cannot be filtered, otherwise a copy of frames whose
// first element is the processor's output frame. The output frame's pixels
// are only valid until the next call to Process. Calls must not overlap.
func (p *Processor) Process(ctx context.Context, frames []videoframe.Frame) []videoframe.Frame {
	if len(frames) == 0 || !p.IsReady() {
		return frames
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isDestroyed() {
		return frames
	}

	out, reason, err := p.filter(ctx, frames[0])
	if out == nil {
		if err != nil {
			log.Warn("Segmentation processor [%s] passing frame through: %v", p.id, err)
		}
		p.diag.FramePassedThrough(p.id, reason)
		return frames
	}

	filtered := make([]videoframe.Frame, len(frames))
	copy(filtered, frames)
	filtered[0] = out
	return filtered
}

func (p *Processor) filter(ctx context.Context, frame videoframe.Frame) (out videoframe.Frame, reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, reason = nil, reasonComposite
			err = xerror.New("recovered from panic while filtering frame").WithParam("panic", r)
		}
	}()

	if frame == nil {
		return nil, reasonNotDrawable, ErrNotDrawable
	}
	canvas := frame.Canvas()
	if canvas == nil {
		return nil, reasonNotDrawable, ErrNotDrawable
	}
	if frame.Dimensions().Empty() || canvas.Rect.Empty() {
		return nil, reasonNotDrawable, nil
	}

	p.resize(videoframe.Dimensions{W: canvas.Rect.Dx(), H: canvas.Rect.Dy()})

	mask, inferred, err := p.nextMask(ctx, canvas)
	if err != nil {
		if err == ErrDestroyed {
			return nil, reasonDestroyed, nil
		}
		return nil, reasonPredict, err
	}
	if mask == nil {
		return nil, reasonNoMask, nil
	}

	p.comp.SetBlurRadius(p.currentBlurRadius())
	img, err := p.comp.Composite(mask, canvas, p.fps.value())
	if err != nil {
		return nil, reasonComposite, err
	}

	p.fps.frame()
	p.diag.FrameProcessed(p.id, inferred)

	if p.output != nil {
		p.output.Close()
	}
	p.output = videoframe.Borrowed(img, nil)
	return p.output, "", nil
}

func (p *Processor) resize(source videoframe.Dimensions) {
	p.statMu.Lock()
	target := videoframe.Dimensions{
		W: scaleDimension(source.W, p.scaleFactor),
		H: scaleDimension(source.H, p.scaleFactor),
	}
	if !p.comp.Fits(target.W, target.H) {
		if p.target != source {
			log.Warn("Segmentation processor [%s] target %dx%d exceeds %d pixels, keeping source size %dx%d",
				p.id, target.W, target.H, p.settings.MaxOutputPixels, source.W, source.H)
		}
		target = source
	}
	changed := source != p.source || target != p.target
	p.source, p.target = source, target
	p.statMu.Unlock()

	if !changed {
		return
	}
	if p.comp.EnsureOutputSize(target.W, target.H) {
		log.Debug("Segmentation processor [%s] resized buffers for source %dx%d, target %dx%d",
			p.id, source.W, source.H, target.W, target.H)
	}
}

func scaleDimension(n int, factor float64) int {
	scaled := int(math.Round(float64(n) * factor))
	if scaled < 1 {
		return 1
	}
	return scaled
}

// dueForInference advances the throttle counter and reports whether this
// frame should run inference.
func (p *Processor) dueForInference() bool {
	p.statMu.Lock()
	defer p.statMu.Unlock()

	due := p.sinceInference >= p.reduceFactor
	if due {
		p.sinceInference = 0
	}
	p.sinceInference++
	return due
}

func (p *Processor) nextMask(ctx context.Context, canvas *image.RGBA) (*image.Alpha, bool, error) {
	if !p.dueForInference() {
		mask, _ := p.masks.Current()
		return mask, false, nil
	}

	if p.inFlight.Load() {
		if p.stuckWarned.CompareAndSwap(false, true) {
			log.Warn("Segmentation processor [%s] worker has not answered its last prediction, reusing previous mask until it does", p.id)
		}
		mask, _ := p.masks.Current()
		return mask, false, nil
	}

	scaled, err := p.comp.Downscale(canvas)
	if err != nil {
		return nil, false, err
	}

	future := p.masks.AwaitNext()
	p.drainPredictErrs()
	p.inFlight.Store(true)
	p.issuedAt.Store(timeNow().UnixNano())

	if _, err := p.channel.Predict(scaled); err != nil {
		p.inFlight.Store(false)
		return nil, false, err
	}
	p.diag.PredictIssued(p.id)

	return p.await(ctx, future)
}

func (p *Processor) drainPredictErrs() {
	select {
	case <-p.predictErrs:
	default:
	}
}

func (p *Processor) await(ctx context.Context, future *async.Future[*image.Alpha]) (*image.Alpha, bool, error) {
	var timeout <-chan time.Time
	if p.settings.PredictTimeout > 0 {
		timer := time.NewTimer(p.settings.PredictTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-future.Done():
		return future.Value(), true, nil
	case err := <-p.predictErrs:
		return nil, false, err
	case <-p.done:
		return nil, false, ErrDestroyed
	case <-ctx.Done():
		log.Debug("Segmentation processor [%s] stopped awaiting mask: %v", p.id, ctx.Err())
	case <-timeout:
		log.Debug("Segmentation processor [%s] timed out awaiting mask after %s", p.id, p.settings.PredictTimeout)
	}

	mask, _ := p.masks.Current()
	return mask, false, nil
}

func (p *Processor) isDestroyed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *Processor) sampleFPS(ctx context.Context) {
	defer close(p.fpsDone)
	ticker := time.NewTicker(fpsSampleWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sampleFPSAt(timeNow())
		}
	}
}

func (p *Processor) sampleFPSAt(now time.Time) {
	if fps, ok := p.fps.tick(now); ok {
		p.diag.FPSUpdated(p.id, fps)
	}
}

// UpdateScaleFactor sets the multiplier applied to the output size. It takes
// effect on the next processed frame. Values outside (0, MaxScaleFactor] are
// ignored.
func (p *Processor) UpdateScaleFactor(scale float64) {
	if scale <= 0 || scale > MaxScaleFactor || math.IsNaN(scale) {
		log.Warn("Ignoring invalid scale factor [%v] for segmentation processor [%s]", scale, p.id)
		return
	}

	p.statMu.Lock()
	p.scaleFactor = scale
	source := p.source
	p.statMu.Unlock()

	log.Info("Segmentation processor [%s] scale factor now %v, target %dx%d", p.id, scale,
		scaleDimension(source.W, scale), scaleDimension(source.H, scale))
}

// SetBlurRadius sets the background blur in pixels, clamped to
// [0, MaxStrength].
func (p *Processor) SetBlurRadius(px float64) {
	if math.IsNaN(px) {
		return
	}
	p.statMu.Lock()
	defer p.statMu.Unlock()
	p.blurRadius = clampStrength(px)
}

func (p *Processor) currentBlurRadius() float64 {
	p.statMu.Lock()
	defer p.statMu.Unlock()
	return p.blurRadius
}

// SetReduceFactor makes the processor run inference once every n frames,
// with n clamped to [MinReduceFactor, MaxReduceFactor].
func (p *Processor) SetReduceFactor(n int) {
	p.statMu.Lock()
	defer p.statMu.Unlock()
	p.reduceFactor = clampReduceFactor(n)
}

func (p *Processor) Snapshot() Snapshot {
	state := p.State()

	p.statMu.Lock()
	defer p.statMu.Unlock()

	s := Snapshot{
		ID:                       p.id,
		State:                    state,
		IsModelReady:             state == Ready,
		SourceWidth:              p.source.W,
		SourceHeight:             p.source.H,
		TargetWidth:              p.target.W,
		TargetHeight:             p.target.H,
		FramesSinceLastInference: p.sinceInference,
		ReduceFactor:             p.reduceFactor,
		BlurRadiusPx:             p.blurRadius,
		ScaleFactor:              p.scaleFactor,
		FPSEstimate:              p.fps.value(),
		PredictInFlight:          p.inFlight.Load(),
	}
	if !p.source.Empty() {
		s.ScaledWidth, s.ScaledHeight = p.settings.Model.InputWidth, p.settings.Model.InputHeight
	}
	return s
}

// Destroy releases the worker, the FPS sampler and every owned buffer. Any
// frame awaiting a mask is released. It is safe to call more than once and
// before the model is ready.
func (p *Processor) Destroy() {
	p.destroyOnce.Do(func() {
		close(p.done)
		p.setState(Destroyed)

		p.stopFPS()
		<-p.fpsDone

		p.channel.Destroy()
		<-p.channel.Done()

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.output != nil {
			p.output.Close()
			p.output = nil
		}
		p.comp.Close()
		log.Debug("Destroyed segmentation processor [%s]", p.id)
	})
}
