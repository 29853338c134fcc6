package process

import (
	"context"
	"sync"

	"github.com/tauraamui/bgblur/pkg/log"
)

type Process interface {
	Setup() Process
	Start()
	Stop()
	Wait()
}

type Settings struct {
	WaitForShutdownMsg string
	// Run is called on the process goroutine and must return once ctx is done.
	Run func(ctx context.Context)
}

// New returns a process which runs settings.Run until stopped. Starting an
// already started process does nothing.
func New(settings Settings) Process {
	return &process{
		waitForShutdownMsg: settings.WaitForShutdownMsg,
		run:                settings.Run,
	}
}

type process struct {
	run                func(context.Context)
	waitForShutdownMsg string

	mu        sync.Mutex
	canceller context.CancelFunc
	done      chan struct{}
}

func (p *process) logShutdown() {
	if len(p.waitForShutdownMsg) > 0 {
		log.Info(p.waitForShutdownMsg)
	}
}

func (p *process) Setup() Process { return p }

func (p *process) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return
	}

	ctx, canceller := context.WithCancel(context.Background())
	p.canceller = canceller
	p.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				log.Error("Process stopped after panic: %v", r)
			}
		}()
		p.run(ctx)
	}(p.done)
}

func (p *process) Stop() {
	p.logShutdown()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.canceller != nil {
		p.canceller()
	}
}

// Wait blocks until the process goroutine has returned. It returns straight
// away for a process which was never started.
func (p *process) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return
	}
	<-done
}
