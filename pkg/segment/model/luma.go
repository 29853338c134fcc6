package model

import (
	"image"

	"github.com/tauraamui/bgblur/pkg/segment/worker"
)

// lumaDescriptor keys out pixels whose luminance is within Threshold of Key,
// the way a flat backdrop would be removed.
type lumaDescriptor struct {
	Kind      string `json:"kind"`
	Key       int    `json:"key" validate:"gte=0 & lte=255"`
	Threshold int    `json:"threshold" validate:"gte=0 & lte=255"`
}

type luma struct {
	params worker.ModelParams
	key    int
	thresh int
}

func loadLuma(descriptor []byte, p worker.ModelParams) (worker.Model, error) {
	d := lumaDescriptor{Key: 255, Threshold: 24}
	if err := decode(descriptor, &d); err != nil {
		return nil, err
	}
	return &luma{params: p, key: d.Key, thresh: d.Threshold}, nil
}

func (m *luma) Predict(input *image.RGBA) ([]float32, error) {
	if err := checkInput(input, m.params); err != nil {
		return nil, err
	}

	r := rangeOf(m.params)
	bg, fg := r.at(0), r.at(1)
	w, h := m.params.InputWidth, m.params.InputHeight
	scores := make([]float32, w*h)
	for y := 0; y < h; y++ {
		row := input.Pix[y*input.Stride : y*input.Stride+w*4]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+3]
			// ITU-R BT.601 weights, in 16.16 fixed point
			lum := (19595*int(px[0]) + 38470*int(px[1]) + 7471*int(px[2]) + 1<<15) >> 16
			diff := lum - m.key
			if diff < 0 {
				diff = -diff
			}
			if diff > m.thresh {
				scores[y*w+x] = fg
			} else {
				scores[y*w+x] = bg
			}
		}
	}
	return scores, nil
}

func (m *luma) Close() {}
