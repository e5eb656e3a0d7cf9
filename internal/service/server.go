package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ServerOptions zero timeouts fall back to the defaults below
type ServerOptions struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// Server the API's HTTP listener. Export requests stream xlsx bodies, so WriteTimeout
// must cover a full-year workbook.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(opts ServerOptions, handler http.Handler, logger *zap.Logger) *Server {
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	s := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       idle,
	}
	return &Server{httpServer: s, logger: logger}
}

// Start blocks until the server stops; a graceful Stop returns nil
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts on ln, which the server closes on Stop
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("shuttle-ledger API listening",
		zap.String("addr", ln.Addr().String()),
		zap.Duration("write_timeout", s.httpServer.WriteTimeout),
	)
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests until ctx ends
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shuttle-ledger API shutting down")
	return s.httpServer.Shutdown(ctx)
}
