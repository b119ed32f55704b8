// Package gateway serves the identity gateway HTTP API.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brporter/lakegate/internal/auth"
	"github.com/brporter/lakegate/internal/config"
	"github.com/brporter/lakegate/internal/identity"
	"github.com/brporter/lakegate/internal/metrics"
	"github.com/brporter/lakegate/internal/warehouse"
)

// APIPrefix is where the versioned API is mounted.
const APIPrefix = "/api/v1"

// GroupLookup resolves group memberships for a decision.
type GroupLookup interface {
	Lookup(ctx context.Context, d auth.Decision) (*auth.GroupResult, error)
}

// QueryRunner runs the configured warehouse query.
type QueryRunner interface {
	CheckConfig() error
	Run(ctx context.Context, cred *identity.Credential) (*warehouse.Result, error)
}

// Services are the components the handlers call into.
type Services struct {
	Resolver *auth.Resolver
	Groups   GroupLookup
	Queries  QueryRunner
	Metrics  metrics.Metrics
	// Gatherer backs /metrics; nil leaves the endpoint unmounted.
	Gatherer prometheus.Gatherer
}

// Server is the gateway HTTP server.
type Server struct {
	cfg      *config.Config
	selector auth.Selector
	svc      Services
	logger   *slog.Logger
	now      func() time.Time
}

// NewServer creates a new gateway server.
func NewServer(cfg *config.Config, svc Services, logger *slog.Logger) *Server {
	if svc.Metrics == nil {
		svc.Metrics = metrics.Noop{}
	}
	return &Server{
		cfg:      cfg,
		selector: auth.NewSelector(cfg),
		svc:      svc,
		logger:   logger,
		now:      time.Now,
	}
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{
				"Content-Type",
				identity.HeaderUserToken,
				identity.HeaderUserEmail,
			},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}
	r.Use(auth.Middleware(s.logger))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, APIPrefix+"/healthcheck", http.StatusTemporaryRedirect)
	})

	r.Route(APIPrefix, func(r chi.Router) {
		r.Get("/healthcheck", s.HandleHealthcheck)
		r.Get("/me", s.HandleMe)
		r.Get("/me/groups", s.HandleMeGroups)
		r.Get("/trips", s.HandleTrips)
		r.Get("/debug/headers", s.HandleDebugHeaders)
	})

	if s.svc.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.svc.Gatherer))
	}

	return r
}
