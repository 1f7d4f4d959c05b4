// Package httptransport is the thin HTTP layer over the collection store.
// It decodes requests, delegates to the store, and writes JSON envelopes;
// business logic never lives here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jwttoken "memberdesk/internal/jwt_token"
	"memberdesk/internal/platform/metrics"
	"memberdesk/internal/platform/middleware"
	"memberdesk/internal/store"
)

// Handler holds the dependencies shared by all routes.
type Handler struct {
	store       store.Store
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tokens      *jwttoken.JWTService
	tokenTTL    time.Duration
	requireAuth bool
}

type Option func(*Handler)

// WithMetrics enables request latency and store counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithRequireAuth gates mutating collection routes behind bearer auth.
func WithRequireAuth() Option {
	return func(h *Handler) { h.requireAuth = true }
}

// WithTokenTTL overrides the access token lifetime issued by login.
func WithTokenTTL(ttl time.Duration) Option {
	return func(h *Handler) { h.tokenTTL = ttl }
}

func NewHandler(s store.Store, tokens *jwttoken.JWTService, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		store:    s,
		logger:   logger,
		tokens:   tokens,
		tokenTTL: 12 * time.Hour,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter wires all public endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Latency(h.metrics))

	r.Get("/health", h.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Post("/auth/login", h.handleLogin)
	r.Get("/bootstrap", h.handleBootstrap)
	r.Get("/collections/{name}", h.handleGetCollection)

	r.Group(func(r chi.Router) {
		if h.requireAuth {
			r.Use(middleware.RequireAuth(h.tokens, h.logger))
		}
		r.Put("/collections/{name}", h.handlePutCollection)
		r.Delete("/collections/{name}", h.handleClearCollection)
		r.Post("/import", h.handleImport)
	})

	return r
}
