// Package metrics exports processor diagnostics as prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tauraamui/bgblur/pkg/segment/processor"
)

const namespace = "bgblur"

// Diagnostics records processor events into prometheus collectors. It
// satisfies processor.Diagnostics.
type Diagnostics struct {
	state            *prometheus.GaugeVec
	predictsIssued   *prometheus.CounterVec
	predictsFailed   *prometheus.CounterVec
	predictLatency   *prometheus.HistogramVec
	framesProcessed  *prometheus.CounterVec
	framesPassedThru *prometheus.CounterVec
	fps              *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Diagnostics {
	d := &Diagnostics{
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "processor",
				Name:      "state",
				Help:      "Current processor state, 1 for the active state and 0 for the rest",
			},
			[]string{"processor", "state"},
		),
		predictsIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "predicts_total",
				Help:      "Total predict requests sent to the segmentation worker",
			},
			[]string{"processor"},
		),
		predictsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "predict_failures_total",
				Help:      "Total predict requests answered with an error",
			},
			[]string{"processor"},
		),
		predictLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "predict_duration_seconds",
				Help:      "Time from sending a predict request to receiving its mask",
				Buckets:   []float64{.005, .01, .02, .033, .05, .075, .1, .25, .5, 1},
			},
			[]string{"processor"},
		),
		framesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "processor",
				Name:      "frames_processed_total",
				Help:      "Total frames composited, by whether they ran inference",
			},
			[]string{"processor", "inferred"},
		),
		framesPassedThru: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "processor",
				Name:      "frames_passed_through_total",
				Help:      "Total frames returned unmodified, by reason",
			},
			[]string{"processor", "reason"},
		),
		fps: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "processor",
				Name:      "fps",
				Help:      "Frames processed per second over the last sample window",
			},
			[]string{"processor"},
		),
	}

	reg.MustRegister(
		d.state, d.predictsIssued, d.predictsFailed, d.predictLatency,
		d.framesProcessed, d.framesPassedThru, d.fps,
	)
	return d
}

var allStates = []processor.State{
	processor.Uninitialized, processor.Initializing, processor.ModelLoading,
	processor.Ready, processor.Failed, processor.Destroyed,
}

func (d *Diagnostics) StateChanged(id string, state processor.State) {
	for _, s := range allStates {
		v := 0.0
		if s == state {
			v = 1
		}
		d.state.WithLabelValues(id, s.String()).Set(v)
	}
}

func (d *Diagnostics) PredictIssued(id string) {
	d.predictsIssued.WithLabelValues(id).Inc()
}

func (d *Diagnostics) PredictCompleted(id string, err error, latency time.Duration) {
	if err != nil {
		d.predictsFailed.WithLabelValues(id).Inc()
		return
	}
	d.predictLatency.WithLabelValues(id).Observe(latency.Seconds())
}

func (d *Diagnostics) FrameProcessed(id string, inferred bool) {
	label := "false"
	if inferred {
		label = "true"
	}
	d.framesProcessed.WithLabelValues(id, label).Inc()
}

func (d *Diagnostics) FramePassedThrough(id string, reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	d.framesPassedThru.WithLabelValues(id, reason).Inc()
}

func (d *Diagnostics) FPSUpdated(id string, fps float64) {
	d.fps.WithLabelValues(id).Set(fps)
}
