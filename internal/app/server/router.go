package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"

	"hrm-payroll/internal/platform/config"
	"hrm-payroll/internal/platform/metrics"
	"hrm-payroll/internal/transport/http/api"
	"hrm-payroll/internal/transport/http/middleware"
)

// Registrar mounts a handler's routes under /api/v1.
type Registrar interface {
	RegisterRoutes(r chi.Router)
}

// Pinger is a dependency checked by /readyz.
type Pinger func(ctx context.Context) error

type RouterDeps struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Collector
	Ready    map[string]Pinger
	Handlers []Registrar
}

func NewRouter(d RouterDeps) http.Handler {
	cfg := d.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if d.Logger != nil {
		router.Use(httplog.RequestLogger(d.Logger, &httplog.Options{
			Level:  slog.LevelInfo,
			Schema: httplog.SchemaECS,
			Skip: func(r *http.Request, respStatus int) bool {
				return r.URL.Path == "/healthz" || r.URL.Path == "/readyz"
			},
		}))
	}
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.IdempotencyHeader},
			ExposedHeaders: []string{"X-Request-ID", "X-Total-Count", "Retry-After", "Idempotent-Replayed"},
			MaxAge:         300,
		}))
	}
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	if cfg.MetricsEnabled && d.Metrics != nil {
		router.Use(middleware.Metrics(d.Metrics))
	}
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, ping := range d.Ready {
			if err := ping(ctx); err != nil {
				slog.WarnContext(ctx, "readiness check failed", "dependency", name, "err", err)
				http.Error(w, name+" not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled && d.Metrics != nil {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, d.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
		for _, h := range d.Handlers {
			h.RegisterRoutes(r)
		}
	})

	return router
}
