package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/frameview/frameview/internal/config"
	"github.com/frameview/frameview/internal/metrics"
	"github.com/frameview/frameview/internal/surface"
)

// Server exposes one preview controller over HTTP: REST for state and
// actions, a websocket for snapshot pushes, and optionally the metrics
// endpoint. It does not own the controller; the caller closes it after Run
// returns.
type Server struct {
	ctrl        *surface.Controller
	collector   *metrics.Collector
	metricsPath string
	logger      *slog.Logger

	httpServer *http.Server
	ln         net.Listener
	watchers   atomic.Int64
}

func New(cfg config.BridgeConfig, ctrl *surface.Controller, collector *metrics.Collector, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctrl:        ctrl,
		collector:   collector,
		metricsPath: cfg.Metrics.Path,
		logger:      logger,
	}
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       config.Duration(cfg.ReadTimeout),
		WriteTimeout:      config.Duration(cfg.WriteTimeout),
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("bridge listen: %w", err)
	}
	s.ln = ln
	return s, nil
}

// Addr is the bound listen address, useful when the config asked for :0.
func (s *Server) Addr() string {
	if s == nil || s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Run serves until the context is canceled or a signal arrives, then shuts
// down gracefully. Hijacked websocket connections end when the controller
// closes.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.logger.Info("bridge listening", "addr", s.Addr())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("bridge: %w", err)
	}
}

func (s *Server) Close() error {
	if s.ln != nil {
		_ = s.ln.Close()
		s.ln = nil
	}
	return nil
}
