package worker

import (
	"fmt"
	"image"
)

// Tag identifies the kind of a request and the response it produces.
type Tag string

const (
	TagInitialize Tag = "initialize"
	TagLoadModel  Tag = "loadModel"
	TagPredict    Tag = "predict"
	TagDestroy    Tag = "destroy"
)

// LoadStatus is the worker's answer to a loadModel request.
type LoadStatus int

const (
	StatusUnloaded LoadStatus = 0
	StatusFailed   LoadStatus = 1
	// StatusLoaded is the only status that means the model can serve predictions.
	StatusLoaded LoadStatus = 2
)

func (s LoadStatus) String() string {
	switch s {
	case StatusUnloaded:
		return "unloaded"
	case StatusFailed:
		return "failed"
	case StatusLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

type InitializeParams struct {
	PathPrefix string
}

// ModelParams describes the model to load and the shape of its input.
type ModelParams struct {
	URL           string
	InputWidth    int
	InputHeight   int
	InputChannels int
	RangeMin      float64
	RangeMax      float64
}

// Request is a message sent to the worker. Only the payload field matching
// Msg is read. A predict request moves ownership of Image to the worker.
type Request struct {
	ID         uint64
	Msg        Tag
	Initialize InitializeParams
	LoadModel  ModelParams
	Image      *image.RGBA
}

// Response echoes the ID and Msg of the request that produced it.
type Response struct {
	ID     uint64
	Msg    Tag
	OK     bool
	Status LoadStatus
	Mask   *image.Alpha
	Err    error
}
