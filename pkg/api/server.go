package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/ussdgw/internal/logger"
	"github.com/marmos91/ussdgw/pkg/api/auth"
	"github.com/marmos91/ussdgw/pkg/menu"
	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/turn"
)

// Server provides the inbound HTTP surface for the gateway: the USSD turn
// route, health probes, and the operator-only menu reload trigger.
//
// The server shuts down gracefully: Start waits up to 5 seconds for
// in-flight requests once its context is cancelled, and Stop takes its
// deadline from the context it is given.
type Server struct {
	server       *http.Server
	config       APIConfig
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server bound to turnHandler for the USSD
// route, sessions for health checks, and menuEngine/menuDir for the reload
// trigger. jwtService may be nil, in which case the reload route is not
// mounted.
func NewServer(config APIConfig, turnHandler *turn.Handler, sessions *session.Store, menuEngine *menu.Engine, menuDir string, jwtService *auth.JWTService) *Server {
	config.applyDefaults()

	router := NewRouter(turnHandler, sessions, menuEngine, menuDir, jwtService)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{server: server, config: config}
}

// Start starts the API HTTP server and blocks until the context is
// cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "port", s.config.Port)
		logger.Debug("API endpoints available",
			"ussd", fmt.Sprintf("http://localhost:%d/api/ussd", s.config.Port),
			"health", fmt.Sprintf("http://localhost:%d/health", s.config.Port),
		)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server. Safe to call multiple
// times and concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is listening on.
func (s *Server) Port() int {
	return s.config.Port
}
