// Package filterd runs the background blur pipeline as a long lived service:
// one source, one segmentation processor and an optional file sink, plus a
// debug HTTP surface for metrics and live tuning.
package filterd

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/tauraamui/bgblur/pkg/camera"
	"github.com/tauraamui/bgblur/pkg/configdef"
	"github.com/tauraamui/bgblur/pkg/debugapi"
	"github.com/tauraamui/bgblur/pkg/filterd/process"
	"github.com/tauraamui/bgblur/pkg/log"
	"github.com/tauraamui/bgblur/pkg/metrics"
	"github.com/tauraamui/bgblur/pkg/segment/model"
	"github.com/tauraamui/bgblur/pkg/segment/processor"
	"github.com/tauraamui/bgblur/pkg/segment/worker"
	"github.com/tauraamui/bgblur/pkg/video/videobackend"
	"github.com/tauraamui/xerror"
)

const debugServerShutdownTimeout = 3 * time.Second

var (
	ErrNotConnected = xerror.New("source is not connected")
	ErrShutdown     = xerror.New("server is shut down")
)

type Option func(*Server)

// WithBackend overrides the video backend named in the configuration.
func WithBackend(b videobackend.Backend) Option {
	return func(s *Server) { s.videoBackend = b }
}

// WithRuntime hosts rt on the segmentation worker instead of the default
// runtime reading models from disk.
func WithRuntime(rt worker.Runtime) Option {
	return func(s *Server) { s.runtime = rt }
}

// WithRegistry registers metrics with reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

type Server struct {
	config       configdef.Values
	videoBackend videobackend.Backend
	runtime      worker.Runtime
	registry     *prometheus.Registry

	mu           sync.Mutex
	source       camera.Connection
	processor    *processor.Processor
	coreProcess  process.Process
	debugServer  *http.Server
	debugDone    chan struct{}
	shutdownDone chan interface{}
	shutdownOnce sync.Once
	closed       bool
}

func NewServer(cr configdef.Resolver, opts ...Option) (*Server, error) {
	values, err := cr.Resolve()
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:       values,
		shutdownDone: make(chan interface{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.videoBackend == nil {
		s.videoBackend = videobackend.Resolve(values.Source.Backend)
	}
	if s.runtime == nil {
		s.runtime = worker.NewRuntime(afero.NewOsFs(), model.Loaders())
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	return s, nil
}

func (s *Server) Connect() error {
	return s.connect(context.Background())
}

func (s *Server) ConnectWithCancel(cancel context.Context) error {
	return s.connect(cancel)
}

func (s *Server) connect(cancel context.Context) error {
	src := s.config.Source
	log.Info("Connecting to source: [%s]...", src.Title)
	conn, err := camera.ConnectWithCancel(cancel, src.Title, src.Address, camera.Settings{FPS: src.FPS}, s.videoBackend)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = conn.Close()
		return ErrShutdown
	}
	s.source = conn
	log.Info("Connected successfully to source: [%s]", src.Title)
	return nil
}

func (s *Server) processorSettings() processor.Settings {
	f, m := s.config.Filter, s.config.Model
	return processor.Settings{
		Strength:     f.Strength,
		ReduceFactor: f.ReduceFactor,
		ScaleFactor:  f.ScaleFactor,
		PathPrefix:   m.PathPrefix,
		Model: worker.ModelParams{
			URL:           m.URL,
			InputWidth:    m.InputWidth,
			InputHeight:   m.InputHeight,
			InputChannels: m.InputChannels,
			RangeMin:      m.RangeMin,
			RangeMax:      m.RangeMax,
		},
		FPSOverlay:     f.FPSOverlay,
		PredictTimeout: time.Duration(f.PredictTimeoutMS) * time.Millisecond,
		Diagnostics:    metrics.New(s.registry),
	}
}

// SetupProcesses builds the processor and the pipeline around the connected
// source.
func (s *Server) SetupProcesses() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrShutdown
	}
	if s.source == nil {
		return ErrNotConnected
	}

	s.processor = processor.New(worker.Spawn(s.runtime), s.processorSettings())
	log.Info("Started segmentation processor [%s]", s.processor.ID())

	var writer videobackend.Writer
	if len(s.config.Sink.Path) > 0 {
		writer = s.videoBackend.NewWriter()
	}
	s.coreProcess = process.NewCoreProcess(s.source, s.processor, writer, process.SinkSettings{
		Path:  s.config.Sink.Path,
		Codec: s.config.Sink.Codec,
		FPS:   s.config.Source.FPS,
	}).Setup()
	return nil
}

func (s *Server) RunProcesses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.coreProcess != nil {
		s.coreProcess.Start()
	}
	if s.processor != nil && len(s.config.MetricsAddr) > 0 {
		s.startDebugServer()
	}
}

func (s *Server) startDebugServer() {
	s.debugServer = &http.Server{
		Addr:              s.config.MetricsAddr,
		Handler:           debugapi.NewRouter(s.processor, s.registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.debugDone = make(chan struct{})
	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		log.Info("Serving debug API on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Debug API stopped: %v", err)
		}
	}(s.debugServer, s.debugDone)
}

// Processor returns the running processor, or nil before SetupProcesses.
func (s *Server) Processor() *processor.Processor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processor
}

func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true

	if s.debugServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), debugServerShutdownTimeout)
		if err := s.debugServer.Shutdown(ctx); err != nil {
			log.Debug("Unable to shut down debug API cleanly: %v", err)
		}
		cancel()
		<-s.debugDone
	}

	if s.coreProcess != nil {
		s.coreProcess.Stop()
		s.coreProcess.Wait()
	}

	if s.processor != nil {
		log.Info("Destroying segmentation processor [%s]...", s.processor.ID())
		s.processor.Destroy()
	}

	if s.source != nil {
		log.Warn("Closing source connection: [%s]...", s.source.Title())
		if err := s.source.Close(); err != nil {
			log.Debug("Unable to close source [%s]: %v", s.source.Title(), err)
		}
	}
	close(s.shutdownDone)
}

// Shutdown stops everything in the reverse order it was started. The
// returned channel is closed once shutdown has finished.
func (s *Server) Shutdown() chan interface{} {
	s.shutdownOnce.Do(func() { go s.shutdown() })
	return s.shutdownDone
}
