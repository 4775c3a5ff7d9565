// Package api provides the HTTP API server and handlers for the Pilgrim application.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pilgrimapp/pilgrim-server/internal/auth"
	domainerrors "github.com/pilgrimapp/pilgrim-server/internal/errors"
	"github.com/pilgrimapp/pilgrim-server/internal/logger"
	"github.com/pilgrimapp/pilgrim-server/internal/metrics"
	"github.com/pilgrimapp/pilgrim-server/internal/ratelimit"
	"github.com/pilgrimapp/pilgrim-server/internal/service"
	"github.com/pilgrimapp/pilgrim-server/internal/store"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// PhotoStorage reports whether signed photo URLs can be issued.
type PhotoStorage interface {
	Configured() bool
}

// Options tune the HTTP surface. Zero values disable the optional parts.
type Options struct {
	CORSOrigins []string
	// IPLimiter throttles /api requests per client IP.
	IPLimiter *ratelimit.KeyedRateLimiter
	Metrics   *metrics.Recorder
	// Gatherer backs /metrics. Nil leaves the endpoint unregistered.
	Gatherer     prometheus.Gatherer
	PhotoStorage PhotoStorage
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    *store.Store
	services *Services
	verifier auth.Verifier
	opts     Options
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(store *store.Store, services *Services, verifier auth.Verifier, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		store:    store,
		services: services,
		verifier: verifier,
		opts:     opts,
		router:   chi.NewRouter(),
		logger:   logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Pilgrim API", Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:   "http",
			Scheme: "bearer",
		},
	}
	humaConfig.CreateHooks = nil
	humaConfig.Transformers = []huma.Transformer{EnvelopeTransformer}

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures the middleware stack. Order matters: the request
// logger must exist before anything that logs.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RealIP)
	s.router.Use(requestContext(s.logger))
	s.router.Use(accessLog(s.logger, s.opts.Metrics))
	s.router.Use(middleware.Recoverer)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	s.router.Use(RateLimitMiddleware(s.opts.IPLimiter, s.logger))
	s.router.Use(authMiddleware(s.verifier, s.servicesProfiles(), s.logger))
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerVisitRoutes()
	s.registerFriendRoutes()
	s.registerProfileRoutes()

	if s.opts.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
}

// fail logs server-side failures with the request logger and converts err
// into the status error huma renders. Client errors are not logged here.
func (s *Server) fail(ctx context.Context, op string, err error) error {
	apiErr := toAPIError(err)
	if apiErr != nil && apiErr.status < http.StatusInternalServerError {
		return apiErr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	l := logger.FromContext(ctx, &logger.Logger{Logger: s.logger})
	l.WithError(err).Error("request failed", "op", op)

	if apiErr == nil {
		return toAPIError(domainerrors.Internal("internal error").WithCause(err))
	}
	return apiErr
}

func (s *Server) servicesProfiles() *service.ProfileService {
	if s.services == nil {
		return nil
	}
	return s.services.Profiles
}
