package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ai-content-boost/internal/config"
	"ai-content-boost/internal/domain/ports/repository"
	"ai-content-boost/internal/domain/ports/usecase"
	"ai-content-boost/internal/infra/redis"
)

// Server is the HTTP edge: signed tenant routes, bearer-guarded admin routes,
// health and metrics. All business rules live in the use cases.
type Server struct {
	cfg       *config.Config
	admission usecase.Admission
	jobs      usecase.Jobs
	flags     usecase.Flags
	tenants   repository.TenantRepository
	cache     *redis.JobStatusCache
	limiter   *redis.RateLimiter
	auth      *AuthManager
	log       *zerolog.Logger
	server    *http.Server
}

func NewServer(
	cfg *config.Config,
	admission usecase.Admission,
	jobs usecase.Jobs,
	flags usecase.Flags,
	tenants repository.TenantRepository,
	cache *redis.JobStatusCache,
	limiter *redis.RateLimiter,
	logger *zerolog.Logger,
) *Server {
	srvLog := logger.With().Str("component", "APIServer").Logger()
	return &Server{
		cfg:       cfg,
		admission: admission,
		jobs:      jobs,
		flags:     flags,
		tenants:   tenants,
		cache:     cache,
		limiter:   limiter,
		auth:      NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL),
		log:       &srvLog,
	}
}

func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID(s.log), RequestLog(s.log), Recover(s.log), Timeout(s.cfg.Server.RequestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Signature(s.tenants, s.cfg.Server.MaxSkew, s.log))
		r.Use(RateLimit(s.limiter, "v1", s.cfg.RateLimit.Requests, s.cfg.RateLimit.Window, s.log))
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs/{jobID}", s.handleJobStatus)
		r.Get("/usage", s.handleUsage)
	})

	r.Route("/admin/v1", func(r chi.Router) {
		r.Post("/token", s.handleAdminToken)
		r.Group(func(r chi.Router) {
			r.Use(AdminAuth(s.auth))
			r.Post("/jobs/{jobID}/cancel", s.handleAdminCancel)
			r.Post("/jobs/{jobID}/retry", s.handleAdminRetry)
			r.Get("/flags/{key}", s.handleFlagGet)
			r.Put("/flags/{key}", s.handleFlagSet)
		})
	})

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.Routes(),
	}
	s.log.Info().Int("port", s.cfg.Server.Port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
