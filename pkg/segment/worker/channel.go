package worker

import (
	"image"
	"sync"

	"github.com/tauraamui/bgblur/pkg/log"
)

// Handlers are invoked from the channel's dispatch goroutine, one response
// at a time.
type Handlers struct {
	OnInitialize func(ok bool)
	OnLoadModel  func(status LoadStatus)
	OnPredict    func(mask *image.Alpha, err error)
}

// Channel sends typed requests over a Conn and routes each response to its
// handler. Every request carries an ID and a response is only delivered when
// it answers a request this channel is still waiting on.
type Channel struct {
	conn     Conn
	handlers Handlers

	mu        sync.Mutex
	nextID    uint64
	pending   map[uint64]Tag
	destroyed bool

	stopping chan struct{}
	done     chan struct{}
}

func NewChannel(conn Conn, handlers Handlers) *Channel {
	c := &Channel{
		conn:     conn,
		handlers: handlers,
		pending:  map[uint64]Tag{},
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.dispatch()
	return c
}

func (c *Channel) Initialize(pathPrefix string) error {
	_, err := c.send(Request{Msg: TagInitialize, Initialize: InitializeParams{PathPrefix: pathPrefix}}, true)
	return err
}

func (c *Channel) LoadModel(params ModelParams) error {
	_, err := c.send(Request{Msg: TagLoadModel, LoadModel: params}, true)
	return err
}

// Predict sends img to the worker and returns the request ID. The caller
// gives up img: it must not be read or written after this call.
func (c *Channel) Predict(img *image.RGBA) (uint64, error) {
	return c.send(Request{Msg: TagPredict, Image: img}, true)
}

// Pending returns how many requests are still awaiting a response.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Channel) send(req Request, awaitResponse bool) (uint64, error) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	c.nextID++
	req.ID = c.nextID
	if awaitResponse {
		c.pending[req.ID] = req.Msg
	}
	c.mu.Unlock()

	if err := c.conn.Send(req); err != nil {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
		return 0, err
	}
	return req.ID, nil
}

func (c *Channel) dispatch() {
	defer close(c.done)
	responses := c.conn.Responses()
	for {
		select {
		case <-c.stopping:
			return
		case resp, ok := <-responses:
			if !ok {
				return
			}
			c.deliver(resp)
		}
	}
}

func (c *Channel) deliver(resp Response) {
	c.mu.Lock()
	tag, ok := c.pending[resp.ID]
	matched := ok && tag == resp.Msg
	if matched {
		delete(c.pending, resp.ID)
	}
	destroyed := c.destroyed
	c.mu.Unlock()

	if destroyed {
		return
	}
	if !matched {
		log.Debug("Dropping unmatched worker response [%s] for request [%d]", resp.Msg, resp.ID)
		return
	}

	switch resp.Msg {
	case TagInitialize:
		if c.handlers.OnInitialize != nil {
			c.handlers.OnInitialize(resp.OK && resp.Err == nil)
		}
	case TagLoadModel:
		if c.handlers.OnLoadModel != nil {
			status := resp.Status
			if resp.Err != nil {
				status = StatusFailed
			}
			c.handlers.OnLoadModel(status)
		}
	case TagPredict:
		if c.handlers.OnPredict != nil {
			c.handlers.OnPredict(resp.Mask, resp.Err)
		}
	}
}

// Destroy asks the worker to release its resources, stops delivering
// responses and closes the connection. It is safe to call more than once.
func (c *Channel) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.nextID++
	id := c.nextID
	c.pending = map[uint64]Tag{}
	c.mu.Unlock()

	if err := c.conn.Send(Request{ID: id, Msg: TagDestroy}); err != nil {
		log.Debug("Unable to send destroy to worker: %v", err)
	}
	close(c.stopping)
	if err := c.conn.Close(); err != nil {
		log.Warn("Unable to close worker connection: %v", err)
	}
}

// Done is closed once the dispatch goroutine has exited.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}
