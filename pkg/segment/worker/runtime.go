package worker

import (
	"encoding/json"
	"image"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tauraamui/bgblur/pkg/log"
	"github.com/tauraamui/xerror"
)

const (
	KindRuntime  = xerror.Kind("worker_runtime")
	KindProtocol = xerror.Kind("worker_protocol")
)

var (
	ErrNotInitialized = xerror.NewWithKind(KindRuntime, "worker has not been initialized")
	ErrModelNotLoaded = xerror.NewWithKind(KindRuntime, "no model loaded")
	ErrInputSize      = xerror.NewWithKind(KindRuntime, "input does not match model input size")
)

// Runtime is what a worker hosts. It is only ever called from the worker's
// own goroutine.
type Runtime interface {
	Initialize(InitializeParams) bool
	LoadModel(ModelParams) LoadStatus
	Predict(*image.RGBA) (*image.Alpha, error)
	Destroy()
}

// Model is an opaque segmentation model. Predict returns one score per
// input pixel, row major, within the range the model was loaded with.
type Model interface {
	Predict(input *image.RGBA) ([]float32, error)
	Close()
}

// Loader builds a model from its descriptor file contents.
type Loader func(descriptor []byte, params ModelParams) (Model, error)

type descriptorHeader struct {
	Kind string `json:"kind"`
}

type runtime struct {
	fs          afero.Fs
	loaders     map[string]Loader
	initialized bool
	pathPrefix  string
	params      ModelParams
	model       Model
}

// NewRuntime returns the default worker runtime, which reads assets from fs
// and builds models with the loader registered for the descriptor's kind.
func NewRuntime(fs afero.Fs, loaders map[string]Loader) Runtime {
	return &runtime{fs: fs, loaders: loaders}
}

func (rt *runtime) Initialize(p InitializeParams) bool {
	info, err := rt.fs.Stat(p.PathPrefix)
	if err != nil {
		log.Error("Unable to initialize worker assets at [%s]: %v", p.PathPrefix, err)
		return false
	}
	if !info.IsDir() {
		log.Error("Worker asset path [%s] is not a directory", p.PathPrefix)
		return false
	}
	rt.pathPrefix = p.PathPrefix
	rt.initialized = true
	return true
}

func (rt *runtime) LoadModel(p ModelParams) LoadStatus {
	if !rt.initialized {
		log.Error("Unable to load model: %v", ErrNotInitialized)
		return StatusFailed
	}
	if err := validateModelParams(p); err != nil {
		log.Error("Unable to load model [%s]: %v", p.URL, err)
		return StatusFailed
	}

	path := p.URL
	if !filepath.IsAbs(path) {
		path = filepath.Join(rt.pathPrefix, path)
	}

	descriptor, err := afero.ReadFile(rt.fs, path)
	if err != nil {
		log.Error("Unable to read model file [%s]: %v", path, err)
		return StatusFailed
	}

	header := descriptorHeader{}
	if err := json.Unmarshal(descriptor, &header); err != nil {
		log.Error("Unable to parse model file [%s]: %v", path, err)
		return StatusFailed
	}

	loader, ok := rt.loaders[header.Kind]
	if !ok {
		log.Error("No loader for model kind [%s]", header.Kind)
		return StatusFailed
	}

	model, err := loader(descriptor, p)
	if err != nil {
		log.Error("Unable to load model [%s] of kind [%s]: %v", path, header.Kind, err)
		return StatusFailed
	}

	if rt.model != nil {
		rt.model.Close()
	}
	rt.model = model
	rt.params = p
	log.Info("Loaded segmentation model [%s] (%dx%dx%d)", path, p.InputWidth, p.InputHeight, p.InputChannels)
	return StatusLoaded
}

func validateModelParams(p ModelParams) error {
	if p.InputWidth <= 0 || p.InputHeight <= 0 {
		return xerror.NewWithKind(KindRuntime, "model input size must be positive").
			WithParam("width", p.InputWidth).WithParam("height", p.InputHeight)
	}
	if p.InputChannels != 3 && p.InputChannels != 4 {
		return xerror.NewWithKind(KindRuntime, "model input channels must be 3 or 4").
			WithParam("channels", p.InputChannels)
	}
	if p.RangeMax <= p.RangeMin {
		return xerror.NewWithKind(KindRuntime, "model range max must exceed range min").
			WithParam("min", p.RangeMin).WithParam("max", p.RangeMax)
	}
	return nil
}

func (rt *runtime) Predict(input *image.RGBA) (*image.Alpha, error) {
	if rt.model == nil {
		return nil, ErrModelNotLoaded
	}
	if input == nil || input.Rect.Dx() != rt.params.InputWidth || input.Rect.Dy() != rt.params.InputHeight {
		return nil, ErrInputSize
	}

	scores, err := rt.model.Predict(input)
	if err != nil {
		return nil, xerror.Errorf("model prediction failed: %w", err)
	}

	w, h := rt.params.InputWidth, rt.params.InputHeight
	if len(scores) != w*h {
		return nil, xerror.NewWithKind(KindRuntime, "model returned wrong number of scores").
			WithParam("want", w*h).WithParam("got", len(scores))
	}

	return scoresToMask(scores, w, h, rt.params.RangeMin, rt.params.RangeMax), nil
}

// scoresToMask maps scores in [min, max] onto alpha values in [0, 255].
func scoresToMask(scores []float32, w, h int, min, max float64) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	span := max - min
	for i, s := range scores {
		v := (float64(s) - min) / span
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		mask.Pix[i] = uint8(v*255 + 0.5)
	}
	return mask
}

func (rt *runtime) Destroy() {
	if rt.model != nil {
		rt.model.Close()
		rt.model = nil
	}
	rt.initialized = false
}
