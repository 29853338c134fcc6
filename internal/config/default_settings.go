package config

import (
	"path/filepath"

	"github.com/tauraamui/bgblur/pkg/configdef"
)

type defaultSettingKey uint

const (
	STRENGTH      defaultSettingKey = 0x0
	REDUCEFACTOR  defaultSettingKey = 0x1
	SCALEFACTOR   defaultSettingKey = 0x2
	MODELURL      defaultSettingKey = 0x3
	MODELSDIRNAME defaultSettingKey = 0x4
	SOURCEFPS     defaultSettingKey = 0x5
	SINKCODEC     defaultSettingKey = 0x6
	METRICSADDR   defaultSettingKey = 0x7
)

var defaultSettings = map[defaultSettingKey]interface{}{
	STRENGTH:      7.0,
	REDUCEFACTOR:  1,
	SCALEFACTOR:   1.0,
	MODELURL:      "selfie_segmentation_landscape.json",
	MODELSDIRNAME: "models",
	SOURCEFPS:     15,
	SINKCODEC:     "MJPG",
	METRICSADDR:   "127.0.0.1:9090",
}

func defaultValues() configdef.Values {
	modelsDir := defaultSettings[MODELSDIRNAME].(string)
	if parent, err := userConfigDir(); err == nil {
		modelsDir = filepath.Join(parent, vendorName, appName, modelsDir)
	}

	return configdef.Values{
		Filter: configdef.Filter{
			Strength:     defaultSettings[STRENGTH].(float64),
			ReduceFactor: defaultSettings[REDUCEFACTOR].(int),
			ScaleFactor:  defaultSettings[SCALEFACTOR].(float64),
			FPSOverlay:   true,
		},
		Model: configdef.Model{
			PathPrefix:    modelsDir,
			URL:           defaultSettings[MODELURL].(string),
			InputWidth:    256,
			InputHeight:   144,
			InputChannels: 4,
			RangeMin:      0,
			RangeMax:      1,
		},
		Source: configdef.Source{
			Title:   "Camera",
			Backend: "mock",
			FPS:     defaultSettings[SOURCEFPS].(int),
		},
		Sink: configdef.Sink{
			Codec: defaultSettings[SINKCODEC].(string),
		},
		MetricsAddr: defaultSettings[METRICSADDR].(string),
	}
}
