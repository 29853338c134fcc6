package camera_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tauraamui/bgblur/pkg/camera"
	"github.com/tauraamui/bgblur/pkg/video/videobackend"
	"github.com/tauraamui/bgblur/pkg/video/videoframe"
)

type testVideoBackend struct {
	onConnectError        error
	onConnectionReadError error
}

func (tvb testVideoBackend) Connect(context context.Context, address string) (videobackend.Connection, error) {
	if tvb.onConnectError != nil {
		return nil, tvb.onConnectError
	}
	return &testVideoConnection{
		onReadError: tvb.onConnectionReadError,
		open:        true,
	}, nil
}

func (tvb testVideoBackend) NewWriter() videobackend.Writer {
	return nil
}

type testVideoConnection struct {
	onReadError error
	open        bool
}

func (tvc *testVideoConnection) UUID() string { return "test-conn" }

func (tvc *testVideoConnection) Read() (videoframe.Frame, error) {
	if tvc.onReadError != nil {
		return nil, tvc.onReadError
	}
	return videoframe.New(4, 4), nil
}

func (tvc *testVideoConnection) IsOpen() bool {
	return tvc.open
}

func (tvc *testVideoConnection) Close() error {
	tvc.open = false
	return nil
}

func TestConnectReturnsConnectionAndNoError(t *testing.T) {
	conn, err := camera.Connect("FakeCamera", "fakeaddr", camera.Settings{
		FPS: 22,
	}, testVideoBackend{})
	require.NoError(t, err)
	require.NotNil(t, conn)

	assert.NotEmpty(t, conn.UUID())
	assert.Equal(t, conn.Title(), "FakeCamera")
	assert.Equal(t, conn.FPS(), 22)
	assert.True(t, conn.IsOpen())
	assert.False(t, conn.IsClosing())
	require.NoError(t, conn.Close())
	assert.True(t, conn.IsClosing())
	assert.False(t, conn.IsOpen())
}

func TestConnectReturnsNoConnectionAndError(t *testing.T) {
	conn, err := camera.Connect("FakeCamera", "fakeaddr", camera.Settings{}, testVideoBackend{
		onConnectError: errors.New("test error"),
	})
	assert.EqualError(t, err, "Unable to connect to camera [FakeCamera]: test error")
	assert.Nil(t, conn)
}

func TestConnectWithCancelUsesMockBackend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := camera.ConnectWithCancel(ctx, "Mock", "mock-source", camera.Settings{FPS: 5}, videobackend.Mock())
	require.NoError(t, err)
	defer conn.Close()

	frame, err := conn.Read()
	require.NoError(t, err)
	defer frame.Close()
	assert.False(t, frame.Dimensions().Empty())
}

func TestConnectReadReturnsFrameAndNoError(t *testing.T) {
	conn, err := camera.Connect("FakeCamera", "fakeaddr", camera.Settings{}, testVideoBackend{})
	require.NoError(t, err)
	require.NotNil(t, conn)

	frame, err := conn.Read()
	assert.NoError(t, err)
	assert.NotNil(t, frame)
}

func TestConnectReadReturnsNoFrameAndError(t *testing.T) {
	conn, err := camera.Connect("FakeCamera", "fakeaddr", camera.Settings{}, testVideoBackend{
		onConnectionReadError: errors.New("test error"),
	})
	require.NoError(t, err)
	require.NotNil(t, conn)

	frame, err := conn.Read()
	assert.EqualError(t, err, "unable to read frame from connection: test error")
	assert.Nil(t, frame)
}
