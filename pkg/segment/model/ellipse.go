package model

import (
	"image"
	"math"

	"github.com/tauraamui/bgblur/pkg/segment/worker"
)

// ellipseDescriptor sizes are fractions of the input dimensions.
type ellipseDescriptor struct {
	Kind    string  `json:"kind"`
	RadiusX float64 `json:"radius_x" validate:"gt=0 & lte=1"`
	RadiusY float64 `json:"radius_y" validate:"gt=0 & lte=1"`
	CentreX float64 `json:"centre_x" validate:"gte=0 & lte=1"`
	CentreY float64 `json:"centre_y" validate:"gte=0 & lte=1"`
	Feather float64 `json:"feather" validate:"gte=0 & lte=1"`
}

func defaultEllipse() ellipseDescriptor {
	return ellipseDescriptor{
		RadiusX: 0.3,
		RadiusY: 0.45,
		CentreX: 0.5,
		CentreY: 0.55,
		Feather: 0.15,
	}
}

// ellipse marks a centred elliptical region as foreground, fading out over
// the feather band at its edge.
type ellipse struct {
	params  worker.ModelParams
	weights []float32
}

func loadEllipse(descriptor []byte, p worker.ModelParams) (worker.Model, error) {
	d := defaultEllipse()
	if err := decode(descriptor, &d); err != nil {
		return nil, err
	}
	return &ellipse{params: p, weights: ellipseScores(d, p)}, nil
}

func ellipseScores(d ellipseDescriptor, p worker.ModelParams) []float32 {
	w, h := p.InputWidth, p.InputHeight
	r := rangeOf(p)
	cx, cy := d.CentreX*float64(w), d.CentreY*float64(h)
	rx, ry := d.RadiusX*float64(w), d.RadiusY*float64(h)
	inner := 1 - d.Feather

	scores := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			dy := (float64(y) + 0.5 - cy) / ry
			dist := math.Sqrt(dx*dx + dy*dy)

			weight := 0.0
			switch {
			case dist <= inner:
				weight = 1
			case dist < 1:
				weight = (1 - dist) / d.Feather
			}
			scores[y*w+x] = r.at(weight)
		}
	}
	return scores
}

func (m *ellipse) Predict(input *image.RGBA) ([]float32, error) {
	if err := checkInput(input, m.params); err != nil {
		return nil, err
	}
	out := make([]float32, len(m.weights))
	copy(out, m.weights)
	return out, nil
}

func (m *ellipse) Close() { m.weights = nil }
