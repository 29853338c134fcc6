package processor

import (
	"time"

	"github.com/tauraamui/bgblur/pkg/segment/compositor"
	"github.com/tauraamui/bgblur/pkg/segment/worker"
)

const (
	DefaultStrength     = 7
	DefaultReduceFactor = 1
	DefaultScaleFactor  = 1
	DefaultPathPrefix   = "/cwt/"
	DefaultModelURL     = "selfie_segmentation_landscape.json"
)

// Bounds on live tuning, matching the configuration file's limits.
const (
	MaxStrength     = compositor.MaxBlurRadius
	MinReduceFactor = 1
	MaxReduceFactor = 60
	MaxScaleFactor  = 4
)

type Settings struct {
	// Strength is the background blur radius in pixels, zero disables blur.
	Strength     float64
	ReduceFactor int
	ScaleFactor  float64
	PathPrefix   string
	Model        worker.ModelParams
	FPSOverlay   bool
	// PredictTimeout bounds how long a frame waits for its mask. Zero waits
	// until the mask arrives, the context is done or the processor is
	// destroyed.
	PredictTimeout time.Duration
	// MaxOutputPixels caps the scaled output area, zero uses
	// compositor.MaxOutputPixels.
	MaxOutputPixels int
	Diagnostics     Diagnostics
}

func DefaultModelParams() worker.ModelParams {
	return worker.ModelParams{
		URL:           DefaultModelURL,
		InputWidth:    256,
		InputHeight:   144,
		InputChannels: 4,
		RangeMin:      0,
		RangeMax:      1,
	}
}

func DefaultSettings() Settings {
	return Settings{
		Strength:     DefaultStrength,
		ReduceFactor: DefaultReduceFactor,
		ScaleFactor:  DefaultScaleFactor,
		PathPrefix:   DefaultPathPrefix,
		Model:        DefaultModelParams(),
		FPSOverlay:   true,
	}
}

func (s Settings) normalized() Settings {
	s.Strength = clampStrength(s.Strength)
	if s.ReduceFactor < MinReduceFactor {
		s.ReduceFactor = DefaultReduceFactor
	}
	s.ReduceFactor = clampReduceFactor(s.ReduceFactor)
	if s.ScaleFactor <= 0 || s.ScaleFactor > MaxScaleFactor {
		s.ScaleFactor = DefaultScaleFactor
	}
	if s.MaxOutputPixels <= 0 {
		s.MaxOutputPixels = compositor.MaxOutputPixels
	}
	if s.Model.InputWidth <= 0 || s.Model.InputHeight <= 0 {
		url := s.Model.URL
		s.Model = DefaultModelParams()
		if len(url) > 0 {
			s.Model.URL = url
		}
	}
	if len(s.Model.URL) == 0 {
		s.Model.URL = DefaultModelURL
	}
	if s.Diagnostics == nil {
		s.Diagnostics = NopDiagnostics{}
	}
	return s
}

func clampStrength(px float64) float64 {
	if px < 0 {
		return 0
	}
	if px > MaxStrength {
		return MaxStrength
	}
	return px
}

func clampReduceFactor(n int) int {
	if n < MinReduceFactor {
		return MinReduceFactor
	}
	if n > MaxReduceFactor {
		return MaxReduceFactor
	}
	return n
}
