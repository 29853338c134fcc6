package videoframe_test

import (
	"image"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/tauraamui/bgblur/pkg/video/videoframe"
)

func overloadTimestamp(fixed time.Time) func() {
	ref := videoframe.Timestamp
	videoframe.Timestamp = func() time.Time { return fixed }
	return func() { videoframe.Timestamp = ref }
}

func TestNewFrameHasRequestedDimensions(t *testing.T) {
	is := is.New(t)
	frame := videoframe.New(320, 180)
	is.Equal(frame.Dimensions(), videoframe.Dimensions{W: 320, H: 180})
	is.True(frame.Canvas() != nil)
}

func TestFrameTimestampTakenOnCreation(t *testing.T) {
	is := is.New(t)
	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	defer overloadTimestamp(ts)()

	frame := videoframe.New(1, 1)
	is.Equal(frame.Timestamp(), ts.UnixNano())
}

func TestClosedFrameHasNoCanvasAndEmptyDimensions(t *testing.T) {
	is := is.New(t)
	frame := videoframe.New(10, 10)
	frame.Close()

	is.True(frame.Canvas() == nil)
	is.True(frame.Dimensions().Empty())
	frame.Close()
}

func TestBorrowedFrameCloseInvokesCallbackOnce(t *testing.T) {
	is := is.New(t)
	canvas := image.NewRGBA(image.Rect(0, 0, 4, 4))
	closeCount := 0
	frame := videoframe.Borrowed(canvas, func() { closeCount++ })

	is.True(frame.Canvas() == canvas)
	frame.Close()
	frame.Close()
	is.Equal(closeCount, 1)
}

func TestZeroSizedFrameIsEmpty(t *testing.T) {
	is := is.New(t)
	is.True(videoframe.New(0, 144).Dimensions().Empty())
	is.True(!videoframe.New(256, 144).Dimensions().Empty())
}
