package worker

import (
	"sync"
	"time"

	"github.com/tauraamui/bgblur/pkg/log"
	"github.com/tauraamui/xerror"
)

const requestBacklog = 8

var (
	ErrClosed       = xerror.New("worker connection closed")
	ErrCloseTimeout = xerror.New("worker did not exit before close timed out")
)

// closeTimeout bounds how long Close waits for a worker stuck in a request.
var closeTimeout = 3 * time.Second

// Conn is the message boundary to an isolated worker. Requests go in with
// Send, responses come back on Responses, which is closed once the worker
// has exited.
type Conn interface {
	Send(Request) error
	Responses() <-chan Response
	Close() error
}

type hostedWorker struct {
	requests  chan Request
	responses chan Response
	closeOnce sync.Once
	stopping  chan struct{}
	done      chan struct{}
}

// Spawn starts a worker goroutine which owns rt exclusively and serves
// requests one at a time, in the order they were sent.
func Spawn(rt Runtime) Conn {
	w := &hostedWorker{
		requests:  make(chan Request, requestBacklog),
		responses: make(chan Response, requestBacklog),
		stopping:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	go w.run(rt)
	return w
}

func (w *hostedWorker) run(rt Runtime) {
	defer close(w.done)
	defer close(w.responses)
	defer rt.Destroy()

	for {
		select {
		case <-w.stopping:
			return
		case req := <-w.requests:
			if req.Msg == TagDestroy {
				log.Debug("Worker received destroy request [%d]", req.ID)
				return
			}
			resp := handle(rt, req)
			select {
			case w.responses <- resp:
			case <-w.stopping:
				return
			}
		}
	}
}

func handle(rt Runtime, req Request) (resp Response) {
	resp = Response{ID: req.ID, Msg: req.Msg}
	defer func() {
		if r := recover(); r != nil {
			resp.Err = xerror.NewWithKind(KindRuntime, "worker panicked").WithParam("request", string(req.Msg)).WithParam("panic", r)
		}
	}()

	switch req.Msg {
	case TagInitialize:
		resp.OK = rt.Initialize(req.Initialize)
	case TagLoadModel:
		resp.Status = rt.LoadModel(req.LoadModel)
	case TagPredict:
		resp.Mask, resp.Err = rt.Predict(req.Image)
	default:
		resp.Err = xerror.NewWithKind(KindProtocol, "unknown request tag").WithParam("tag", string(req.Msg))
	}
	return resp
}

func (w *hostedWorker) Send(req Request) error {
	select {
	case <-w.stopping:
		return ErrClosed
	case <-w.done:
		return ErrClosed
	default:
	}

	select {
	case w.requests <- req:
		return nil
	case <-w.stopping:
		return ErrClosed
	case <-w.done:
		return ErrClosed
	}
}

func (w *hostedWorker) Responses() <-chan Response {
	return w.responses
}

// Close stops the worker and waits for it to exit. A worker stuck in a
// request is given up on after closeTimeout, it exits once the request
// returns without delivering its response.
func (w *hostedWorker) Close() error {
	w.closeOnce.Do(func() { close(w.stopping) })

	timer := time.NewTimer(closeTimeout)
	defer timer.Stop()
	select {
	case <-w.done:
		return nil
	case <-timer.C:
		return ErrCloseTimeout
	}
}
