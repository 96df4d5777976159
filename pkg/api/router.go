package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/ussdgw/internal/logger"
	"github.com/marmos91/ussdgw/pkg/api/auth"
	"github.com/marmos91/ussdgw/pkg/api/handlers"
	apiMiddleware "github.com/marmos91/ussdgw/pkg/api/middleware"
	"github.com/marmos91/ussdgw/pkg/menu"
	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/turn"
)

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - POST /api/ussd - the one meaningful route, one turn per request
//   - GET /health - liveness probe
//   - GET /health/ready - readiness probe
//   - GET /health/stores - detailed store health
//   - POST /internal/menu/reload - operator-only menu reload trigger,
//     authenticated with a bearer operator token. jwtService may be nil,
//     in which case the reload route is not mounted at all.
func NewRouter(turnHandler *turn.Handler, sessions *session.Store, menuEngine *menu.Engine, menuDir string, jwtService *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(sessions)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
		r.Get("/stores", healthHandler.Stores)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	ussdHandler := handlers.NewUSSDHandler(turnHandler)
	r.Post("/api/ussd", ussdHandler.Handle)

	if jwtService != nil {
		menuHandler := handlers.NewMenuHandler(menuEngine, menuDir)
		r.Route("/internal/menu", func(r chi.Router) {
			r.Use(apiMiddleware.JWTAuth(jwtService))
			r.Use(apiMiddleware.RequireAdmin())
			r.Post("/reload", menuHandler.Reload)
		})
	}

	return r
}

// requestLogger is a custom middleware that logs requests using the internal
// logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		)
	})
}
