package camera

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tauraamui/bgblur/pkg/video/videobackend"
	"github.com/tauraamui/bgblur/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

// Connection is a titled video source. Frames returned by Read belong to the
// caller.
type Connection interface {
	UUID() string
	Read() (videoframe.Frame, error)
	Title() string
	FPS() int
	IsOpen() bool
	IsClosing() bool
	Close() error
}

type connection struct {
	uuid      string
	title     string
	sett      Settings
	mu        sync.Mutex
	isClosing bool
	vc        videobackend.Connection
}

func (c *connection) UUID() string {
	return c.uuid
}

func (c *connection) Read() (videoframe.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	frame, err := c.vc.Read()
	if err != nil {
		return nil, xerror.Errorf("unable to read frame from connection: %w", err)
	}
	return frame, nil
}

func (c *connection) Title() string {
	return c.title
}

func (c *connection) FPS() int {
	return c.sett.FPS
}

func (c *connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vc.IsOpen()
}

func (c *connection) IsClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isClosing
}

func (c *connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isClosing = true
	return c.vc.Close()
}

func connect(ctx context.Context, title, addr string, settings Settings, backend videobackend.Backend) (Connection, error) {
	vc, err := backend.Connect(ctx, addr)
	if err != nil {
		return nil, xerror.Errorf("Unable to connect to camera [%s]: %w", title, err)
	}
	return &connection{
		uuid:  uuid.NewString(),
		title: title,
		vc:    vc,
		sett:  settings,
	}, nil
}

func Connect(title, addr string, settings Settings, backend videobackend.Backend) (Connection, error) {
	return connect(context.Background(), title, addr, settings, backend)
}

func ConnectWithCancel(cancel context.Context, title, addr string, settings Settings, backend videobackend.Backend) (Connection, error) {
	return connect(cancel, title, addr, settings, backend)
}
