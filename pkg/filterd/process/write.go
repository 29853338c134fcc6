package process

import (
	"context"

	"github.com/tauraamui/bgblur/pkg/log"
	"github.com/tauraamui/bgblur/pkg/video/videobackend"
	"github.com/tauraamui/bgblur/pkg/video/videoframe"
)

type SinkSettings struct {
	Path  string
	Codec string
	FPS   int
}

// WriteProcess encodes every frame from src with w. The writer is opened
// with the first frame's size and closed when the process stops. A nil
// writer discards frames.
func WriteProcess(w videobackend.Writer, sett SinkSettings, src chan videoframe.Frame) func(context.Context) {
	return func(ctx context.Context) {
		sink := frameSink{w: w, sett: sett}
		defer sink.close()
		for {
			select {
			case <-ctx.Done():
				drain(src)
				return
			case frame := <-src:
				sink.write(frame)
			}
		}
	}
}

type frameSink struct {
	w      videobackend.Writer
	sett   SinkSettings
	opened bool
	failed bool
}

func (s *frameSink) write(frame videoframe.Frame) {
	defer frame.Close()
	if s.w == nil || s.failed {
		return
	}

	if !s.opened {
		if err := s.w.Init(s.sett.Path, s.sett.Codec, s.sett.FPS, frame.Dimensions()); err != nil {
			log.Error("Unable to open output [%s]: %v", s.sett.Path, err)
			s.failed = true
			return
		}
		s.opened = true
	}

	if err := s.w.Write(frame); err != nil {
		log.Error("Unable to write frame to [%s]: %v", s.sett.Path, err)
	}
}

func (s *frameSink) close() {
	if !s.opened {
		return
	}
	if err := s.w.Close(); err != nil {
		log.Debug("Unable to close output [%s]: %v", s.sett.Path, err)
	}
}
