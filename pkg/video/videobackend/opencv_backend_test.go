package videobackend_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/tauraamui/bgblur/pkg/video/videobackend"
	"gocv.io/x/gocv"
)

func TestOpenCVConnectReturnsCaptureError(t *testing.T) {
	is := is.New(t)
	defer videobackend.OverloadOpenVideoCapture(func(string) (*gocv.VideoCapture, error) {
		return nil, errors.New("no such device")
	})()

	conn, err := videobackend.OpenCV().Connect(context.Background(), "0")
	is.True(conn == nil)
	is.Equal(err.Error(), "no such device")
}

func TestOpenCVConnectCancelledWhileOpening(t *testing.T) {
	is := is.New(t)
	release := make(chan struct{})
	defer close(release)
	defer videobackend.OverloadOpenVideoCapture(func(string) (*gocv.VideoCapture, error) {
		<-release
		return nil, errors.New("released")
	})()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	conn, err := videobackend.OpenCV().Connect(ctx, "0")
	is.True(conn == nil)
	is.Equal(err.Error(), "connection cancelled")
}
