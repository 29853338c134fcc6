// Package debugapi serves metrics and live processor state over HTTP.
package debugapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tauraamui/bgblur/pkg/log"
	"github.com/tauraamui/bgblur/pkg/segment/processor"
	"gopkg.in/dealancer/validate.v2"
)

// Processor is the part of a segmentation processor the debug API exposes.
type Processor interface {
	Snapshot() processor.Snapshot
	SetBlurRadius(px float64)
	SetReduceFactor(n int)
	UpdateScaleFactor(scale float64)
}

// Tuning is the body accepted by PATCH /debug/processor. Omitted fields are
// left as they are.
type Tuning struct {
	Strength     *float64 `json:"strength"`
	ReduceFactor *int     `json:"reduce_factor"`
	ScaleFactor  *float64 `json:"scale_factor"`
}

// tunedValues is a Tuning merged over the processor's current values, with
// the same limits the configuration file enforces.
type tunedValues struct {
	Strength     float64 `validate:"gte=0 & lte=64"`
	ReduceFactor int     `validate:"gte=1 & lte=60"`
	ScaleFactor  float64 `validate:"gt=0 & lte=4"`
}

func NewRouter(proc Processor, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/debug/processor", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, proc.Snapshot())
		})
		r.Patch("/", func(w http.ResponseWriter, req *http.Request) {
			tuning := Tuning{}
			if err := json.NewDecoder(req.Body).Decode(&tuning); err != nil {
				http.Error(w, "invalid tuning body", http.StatusBadRequest)
				return
			}
			if err := validateTuning(tuning, proc.Snapshot()); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			applyTuning(proc, tuning)
			writeJSON(w, http.StatusOK, proc.Snapshot())
		})
	})

	return r
}

func validateTuning(t Tuning, current processor.Snapshot) error {
	v := tunedValues{
		Strength:     current.BlurRadiusPx,
		ReduceFactor: current.ReduceFactor,
		ScaleFactor:  current.ScaleFactor,
	}
	if t.Strength != nil {
		v.Strength = *t.Strength
	}
	if t.ReduceFactor != nil {
		v.ReduceFactor = *t.ReduceFactor
	}
	if t.ScaleFactor != nil {
		v.ScaleFactor = *t.ScaleFactor
	}
	if err := validate.Validate(&v); err != nil {
		return errInvalidTuning(err.Error())
	}
	return nil
}

func applyTuning(proc Processor, t Tuning) {
	if t.Strength != nil {
		proc.SetBlurRadius(*t.Strength)
	}
	if t.ReduceFactor != nil {
		proc.SetReduceFactor(*t.ReduceFactor)
	}
	if t.ScaleFactor != nil {
		proc.UpdateScaleFactor(*t.ScaleFactor)
	}
	log.Info("Applied processor tuning from debug API")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Unable to write debug response: %v", err)
	}
}
