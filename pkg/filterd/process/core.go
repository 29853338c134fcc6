package process

import (
	"fmt"
	"sync"

	"github.com/tauraamui/bgblur/pkg/camera"
	"github.com/tauraamui/bgblur/pkg/video/videobackend"
	"github.com/tauraamui/bgblur/pkg/video/videoframe"
)

const frameBacklog = 2

// NewCoreProcess wires capture, filter and write processes together for a
// single source.
func NewCoreProcess(cam camera.Connection, filter Filter, w videobackend.Writer, sink SinkSettings) Process {
	return &filterCameraToSink{
		cam:      cam,
		filter:   filter,
		writer:   w,
		sink:     sink,
		frames:   make(chan videoframe.Frame, frameBacklog),
		filtered: make(chan videoframe.Frame, frameBacklog),
	}
}

type filterCameraToSink struct {
	cam      camera.Connection
	filter   Filter
	writer   videobackend.Writer
	sink     SinkSettings
	frames   chan videoframe.Frame
	filtered chan videoframe.Frame
	capture  Process
	filterP  Process
	write    Process
}

func (proc *filterCameraToSink) Setup() Process {
	proc.write = New(Settings{
		WaitForShutdownMsg: fmt.Sprintf("Stopping writing [%s] filtered frames...", proc.cam.Title()),
		Run:                WriteProcess(proc.writer, proc.sink, proc.filtered),
	})

	proc.filterP = New(Settings{
		WaitForShutdownMsg: fmt.Sprintf("Stopping filtering [%s] frames...", proc.cam.Title()),
		Run:                FilterProcess(proc.filter, proc.frames, proc.filtered),
	})

	proc.capture = New(Settings{
		WaitForShutdownMsg: fmt.Sprintf("Closing source [%s] video stream...", proc.cam.Title()),
		Run:                CaptureProcess(proc.cam, proc.frames),
	})
	return proc
}

func (proc *filterCameraToSink) Start() {
	proc.write.Start()
	proc.filterP.Start()
	proc.capture.Start()
}

// Stop shuts the processes down from the source end.
func (proc *filterCameraToSink) Stop() {
	proc.capture.Stop()
	proc.capture.Wait()
	proc.filterP.Stop()
	proc.filterP.Wait()
	proc.write.Stop()
}

func (proc *filterCameraToSink) Wait() {
	wg := sync.WaitGroup{}
	wg.Add(3)
	go func(wg *sync.WaitGroup) {
		proc.write.Wait()
		wg.Done()
	}(&wg)
	go func(wg *sync.WaitGroup) {
		proc.filterP.Wait()
		wg.Done()
	}(&wg)
	go func(wg *sync.WaitGroup) {
		proc.capture.Wait()
		wg.Done()
	}(&wg)
	wg.Wait()
}
