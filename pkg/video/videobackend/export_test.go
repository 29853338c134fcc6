package videobackend

import (
	"context"
	"time"

	"gocv.io/x/gocv"
)

func OverloadTimeNow(t time.Time) func() {
	ref := timeNow
	timeNow = func() time.Time { return t }
	return func() { timeNow = ref }
}

func StreamHost(addr string) (string, bool, error) {
	return streamHost(addr)
}

func ProbeStreamHost(ctx context.Context, addr string) error {
	return probeStreamHost(ctx, addr)
}

func FramesWritten(w Writer) int {
	mw, ok := w.(*mockVideoWriter)
	if !ok {
		return -1
	}
	return mw.framesWritten()
}

func OverloadOpenVideoCapture(fn func(string) (*gocv.VideoCapture, error)) func() {
	ref := openVideoCapture
	openVideoCapture = fn
	return func() { openVideoCapture = ref }
}
