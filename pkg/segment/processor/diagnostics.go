package processor

import "time"

// Diagnostics observes a processor. Calls may arrive from the frame path,
// the worker response goroutine and the FPS sampler, so implementations must
// be safe for concurrent use and should return quickly.
type Diagnostics interface {
	StateChanged(id string, state State)
	PredictIssued(id string)
	PredictCompleted(id string, err error, latency time.Duration)
	FrameProcessed(id string, inferred bool)
	FramePassedThrough(id string, reason string)
	FPSUpdated(id string, fps float64)
}

type NopDiagnostics struct{}

func (NopDiagnostics) StateChanged(string, State)                    {}
func (NopDiagnostics) PredictIssued(string)                          {}
func (NopDiagnostics) PredictCompleted(string, error, time.Duration) {}
func (NopDiagnostics) FrameProcessed(string, bool)                   {}
func (NopDiagnostics) FramePassedThrough(string, string)             {}
func (NopDiagnostics) FPSUpdated(string, float64)                    {}

const (
	reasonNotDrawable = "not_drawable"
	reasonNoMask      = "no_mask"
	reasonPredict     = "predict_failed"
	reasonComposite   = "composite_failed"
	reasonDestroyed   = "destroyed"
)
