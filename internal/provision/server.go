package provision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server runs the local setup UI. Start and Stop are called from the device
// loop as the network link comes and goes; both are idempotent.
type Server struct {
	handler   *Handler
	logger    *zap.Logger
	port      int
	loginRate rate.Limit

	mu      sync.Mutex
	httpSrv *http.Server
}

// NewServer creates a setup UI server listening on port.
func NewServer(handler *Handler, port int, loginRate rate.Limit, logger *zap.Logger) *Server {
	return &Server{
		handler:   handler,
		logger:    logger,
		port:      port,
		loginRate: loginRate,
	}
}

// Start begins serving in the background. Starting a running server is a
// no-op.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpSrv != nil {
		return nil
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: NewRouter(s.handler, s.loginRate),
	}
	s.httpSrv = srv

	go func() {
		s.logger.Info("setup UI listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("setup UI server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
