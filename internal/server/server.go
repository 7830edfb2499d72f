package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/muurk/easyremote/internal/catalog"
	"github.com/muurk/easyremote/internal/config"
	"github.com/muurk/easyremote/internal/logging"
	"github.com/muurk/easyremote/internal/scheduler"
	"github.com/muurk/easyremote/internal/state"
)

// ShutdownTimeout bounds how long Start waits for in-flight requests.
const ShutdownTimeout = 10 * time.Second

// Submitter queues input events. *scheduler.Scheduler implements it.
type Submitter interface {
	Submit(e scheduler.Event) bool
}

// StateSource exposes the tracked devices. *state.Tracker implements it.
type StateSource interface {
	Snapshot() []state.DeviceState
	Device(name string) (config.Device, bool)
}

// Deps are the collaborators the HTTP surface reads from and submits to.
type Deps struct {
	States  StateSource
	Catalog *catalog.Catalog
	Events  Submitter

	// Optional.
	Busy    func() bool
	Pending func() int
	Metrics http.Handler
}

// Server is the HTTP status surface: a JSON API, a WebSocket display
// mirror and the metrics endpoint.
type Server struct {
	cfg       config.Server
	deps      Deps
	hub       *Hub
	router    chi.Router
	tlsConfig *tls.Config
}

// New creates a server. It loads the TLS certificate when one is configured.
func New(cfg config.Server, deps Deps) (*Server, error) {
	if deps.States == nil || deps.Catalog == nil || deps.Events == nil {
		return nil, errors.New("server needs states, catalog and events")
	}

	s := &Server{
		cfg:  cfg,
		deps: deps,
		hub:  NewHub(deps.Events),
	}
	if cfg.TLS() {
		tlsConfig, err := NewTLSConfig(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		s.tlsConfig = tlsConfig
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.hub.ServeWS)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/shows", s.handleShows)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/buttons/{button}", s.handleButton)
		r.Post("/devices/{device}/launch", s.handleLaunch)
		r.Post("/devices/{device}/power-off", s.handlePowerOff)
		r.Post("/devices/{device}/volume/{direction}", s.handleVolume)
	})
	return r
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub. Register it with the display manager to
// mirror frames to clients.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.tlsConfig != nil {
		logging.Info("TLS Configuration", zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
		ln = tls.NewListener(ln, s.tlsConfig)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	logging.Info("Status server listening",
		zap.String("addr", ln.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
	)

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status server failed: %w", err)
	case <-ctx.Done():
	}

	logging.Info("Shutting down status server...")
	stopHub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		_ = srv.Close()
	}
	return nil
}
