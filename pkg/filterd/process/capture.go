package process

import (
	"context"
	"time"

	"github.com/tauraamui/bgblur/pkg/camera"
	"github.com/tauraamui/bgblur/pkg/log"
	"github.com/tauraamui/bgblur/pkg/video/videoframe"
)

// CaptureProcess reads frames from cam at its configured rate and offers
// them to dest. A frame is dropped when dest has no room for it.
func CaptureProcess(cam camera.Connection, dest chan videoframe.Frame) func(context.Context) {
	return func(ctx context.Context) {
		var tick <-chan time.Time
		if fps := cam.FPS(); fps > 0 {
			ticker := time.NewTicker(time.Second / time.Duration(fps))
			defer ticker.Stop()
			tick = ticker.C
		}
		for {
			select {
			case <-ctx.Done():
				return
			default:
				capture(cam, dest)
			}
			if tick == nil {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		}
	}
}

func capture(cam camera.Connection, frames chan videoframe.Frame) {
	if !cam.IsOpen() {
		return
	}
	log.Debug("Reading frame from vid stream for source [%s]", cam.Title())
	frame, err := cam.Read()
	if err != nil {
		log.Error("Unable to retrieve frame: %v. Auto re-connecting is not yet implemented", err)
		return
	}
	select {
	case frames <- frame:
		log.Debug("Sending frame from source to buffer...")
	default:
		frame.Close()
		log.Debug("Buffer full...")
	}
}
