package configdef

import (
	"errors"
	"fmt"

	"gopkg.in/dealancer/validate.v2"
)

type Filter struct {
	Strength         float64 `json:"strength" yaml:"strength" toml:"strength" validate:"gte=0 & lte=64"`
	ReduceFactor     int     `json:"reduce_factor" yaml:"reduce_factor" toml:"reduce_factor" validate:"gte=1 & lte=60"`
	ScaleFactor      float64 `json:"scale_factor" yaml:"scale_factor" toml:"scale_factor" validate:"gt=0 & lte=4"`
	FPSOverlay       bool    `json:"fps_overlay" yaml:"fps_overlay" toml:"fps_overlay"`
	PredictTimeoutMS int     `json:"predict_timeout_ms" yaml:"predict_timeout_ms" toml:"predict_timeout_ms" validate:"gte=0"`
}

type Model struct {
	PathPrefix    string  `json:"path_prefix" yaml:"path_prefix" toml:"path_prefix" validate:"empty=false"`
	URL           string  `json:"url" yaml:"url" toml:"url" validate:"empty=false"`
	InputWidth    int     `json:"input_width" yaml:"input_width" toml:"input_width" validate:"gte=1"`
	InputHeight   int     `json:"input_height" yaml:"input_height" toml:"input_height" validate:"gte=1"`
	InputChannels int     `json:"input_channels" yaml:"input_channels" toml:"input_channels" validate:"gte=3 & lte=4"`
	RangeMin      float64 `json:"range_min" yaml:"range_min" toml:"range_min"`
	RangeMax      float64 `json:"range_max" yaml:"range_max" toml:"range_max"`
}

type Source struct {
	Title   string `json:"title" yaml:"title" toml:"title" validate:"empty=false"`
	Address string `json:"address" yaml:"address" toml:"address"`
	Backend string `json:"backend" yaml:"backend" toml:"backend" validate:"one_of=opencv,mock"`
	FPS     int    `json:"fps" yaml:"fps" toml:"fps" validate:"gte=1 & lte=60"`
}

type Sink struct {
	Path  string `json:"path" yaml:"path" toml:"path"`
	Codec string `json:"codec" yaml:"codec" toml:"codec"`
}

type Values struct {
	Debug       bool   `json:"debug" yaml:"debug" toml:"debug"`
	Filter      Filter `json:"filter" yaml:"filter" toml:"filter"`
	Model       Model  `json:"model" yaml:"model" toml:"model"`
	Source      Source `json:"source" yaml:"source" toml:"source"`
	Sink        Sink   `json:"sink" yaml:"sink" toml:"sink"`
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr" toml:"metrics_addr"`
}

// RunValidate checks every field constraint and then the constraints which
// span more than one field.
func (v Values) RunValidate() error {
	if err := validate.Validate(&v); err != nil {
		return err
	}
	return v.Validate()
}

func (v Values) Validate() error {
	const validationErrorHeader = "validation failed: %w"
	if v.Model.RangeMax <= v.Model.RangeMin {
		return fmt.Errorf(validationErrorHeader, errors.New("model range_max must be greater than range_min"))
	}
	if len(v.Sink.Path) > 0 && len(v.Sink.Codec) != 4 {
		return fmt.Errorf(validationErrorHeader, errors.New("sink codec must be a four character code"))
	}
	if v.Source.Backend == "opencv" && len(v.Source.Address) == 0 {
		return fmt.Errorf(validationErrorHeader, errors.New("opencv source requires an address"))
	}
	return nil
}
