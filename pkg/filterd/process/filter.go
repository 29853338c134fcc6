package process

import (
	"context"
	"image"

	"github.com/tauraamui/bgblur/pkg/log"
	"github.com/tauraamui/bgblur/pkg/video/videoframe"
)

// Filter transforms a frame list. Frames it returns are only valid until the
// next call.
type Filter interface {
	Process(context.Context, []videoframe.Frame) []videoframe.Frame
}

// FilterProcess runs every frame from src through filter and offers an owned
// copy of the result to dest. Source frames are closed once filtered.
func FilterProcess(filter Filter, src chan videoframe.Frame, dest chan videoframe.Frame) func(context.Context) {
	return func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				drain(src)
				return
			case frame := <-src:
				applyFilter(ctx, filter, frame, dest)
			}
		}
	}
}

func applyFilter(ctx context.Context, filter Filter, frame videoframe.Frame, dest chan videoframe.Frame) {
	defer frame.Close()

	out := filter.Process(ctx, []videoframe.Frame{frame})
	if len(out) == 0 || out[0] == nil {
		return
	}

	canvas := out[0].Canvas()
	if canvas == nil {
		return
	}

	owned := videoframe.FromCanvas(cloneCanvas(canvas))
	select {
	case dest <- owned:
	default:
		owned.Close()
		log.Debug("Filtered frame buffer full...")
	}
}

func cloneCanvas(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, src.Rect.Dx(), src.Rect.Dy()))
	for y := 0; y < dst.Rect.Dy(); y++ {
		si := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+dst.Rect.Dx()*4], src.Pix[si:si+dst.Rect.Dx()*4])
	}
	return dst
}

func drain(frames chan videoframe.Frame) {
	for {
		select {
		case f := <-frames:
			f.Close()
		default:
			return
		}
	}
}
