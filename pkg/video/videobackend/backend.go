package videobackend

import (
	"context"

	"github.com/spf13/afero"
	"github.com/tauraamui/bgblur/pkg/video/videoframe"
)

var fs = afero.NewOsFs()

// Connection is an open video source. Each Read returns a new frame which
// the caller owns and must close.
type Connection interface {
	UUID() string
	Read() (videoframe.Frame, error)
	IsOpen() bool
	Close() error
}

// Writer encodes frames into a single output file.
type Writer interface {
	Init(path, codec string, fps int, dims videoframe.Dimensions) error
	Write(videoframe.Frame) error
	Close() error
}

type Backend interface {
	Connect(context.Context, string) (Connection, error)
	NewWriter() Writer
}

func Default() Backend {
	return OpenCV()
}

func OpenCV() Backend {
	return &openCVBackend{}
}

func Mock() Backend {
	return &mockVideoBackend{}
}

func Resolve(t string) Backend {
	switch t {
	case "mock":
		return Mock()
	default:
		return Default()
	}
}
