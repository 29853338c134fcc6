// Package model holds the reference segmentation models the worker runtime
// can load. Each model reads a small JSON descriptor and scores every input
// pixel in the range given by the load parameters.
package model

import (
	"encoding/json"
	"image"

	"github.com/tauraamui/bgblur/pkg/segment/worker"
	"github.com/tauraamui/xerror"
	"gopkg.in/dealancer/validate.v2"
)

const (
	KindOpaque  = "opaque"
	KindEllipse = "ellipse"
	KindLuma    = "luma"
)

// Loaders returns the loader for every reference model kind.
func Loaders() map[string]worker.Loader {
	return map[string]worker.Loader{
		KindOpaque:  loadOpaque,
		KindEllipse: loadEllipse,
		KindLuma:    loadLuma,
	}
}

func decode(descriptor []byte, v interface{}) error {
	if err := json.Unmarshal(descriptor, v); err != nil {
		return xerror.Errorf("unable to parse model descriptor: %w", err)
	}
	if err := validate.Validate(v); err != nil {
		return xerror.Errorf("invalid model descriptor: %w", err)
	}
	return nil
}

type scoreRange struct {
	min, max float32
}

func rangeOf(p worker.ModelParams) scoreRange {
	return scoreRange{min: float32(p.RangeMin), max: float32(p.RangeMax)}
}

// at maps a foreground weight in [0, 1] onto the score range.
func (r scoreRange) at(weight float64) float32 {
	return r.min + float32(weight)*(r.max-r.min)
}

func checkInput(input *image.RGBA, p worker.ModelParams) error {
	if input == nil {
		return xerror.New("model input is nil")
	}
	if input.Rect.Dx() != p.InputWidth || input.Rect.Dy() != p.InputHeight {
		return xerror.New("model input does not match loaded input size").
			WithParam("width", input.Rect.Dx()).WithParam("height", input.Rect.Dy())
	}
	return nil
}

type opaque struct {
	params worker.ModelParams
}

func loadOpaque(descriptor []byte, p worker.ModelParams) (worker.Model, error) {
	d := struct {
		Kind string `json:"kind"`
	}{}
	if err := decode(descriptor, &d); err != nil {
		return nil, err
	}
	return &opaque{params: p}, nil
}

func (m *opaque) Predict(input *image.RGBA) ([]float32, error) {
	if err := checkInput(input, m.params); err != nil {
		return nil, err
	}
	scores := make([]float32, m.params.InputWidth*m.params.InputHeight)
	fg := rangeOf(m.params).at(1)
	for i := range scores {
		scores[i] = fg
	}
	return scores, nil
}

func (m *opaque) Close() {}
