// Package httpserver wires handlers and middleware onto a chi router.
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"email-responder/internal/handlers"
	"email-responder/internal/metrics"
	"email-responder/internal/middleware"
)

// Options tune the middleware stack. Zero values use the defaults below.
type Options struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// AllowedOrigins defaults to any origin; the browser extension calls from its own origin.
	AllowedOrigins []string
}

const (
	defaultRequestTimeout = 15 * time.Second
	defaultMaxBodyBytes   = 512 * 1024
)

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, opts Options, replies *handlers.ReplyHandler, admin *handlers.AdminHandler) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	r.Use(metrics.Middleware)

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	// preflight requests are answered here, before routing
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/replies", replies.Generate)
	})
	// path used by existing clients
	r.Post("/generate-response", replies.Generate)

	r.Route("/cache", func(r chi.Router) {
		r.Get("/stats", admin.CacheStats)
		r.Post("/clear", admin.CacheClear)
		// older clients clear with GET
		r.Get("/clear", admin.CacheClear)
	})

	r.Get("/history", admin.ListHistory)
	r.Get("/stats", admin.Stats)

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", admin.ListTemplates)
		r.Post("/", admin.CreateTemplate)
		r.Get("/{id}", admin.GetTemplate)
		r.Put("/{id}", admin.UpdateTemplate)
		r.Delete("/{id}", admin.DeleteTemplate)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/health", handlers.Health)

	r.Handle("/metrics", metrics.Handler())
}
