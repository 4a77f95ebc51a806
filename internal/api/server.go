// Package api exposes quoting, selection updates, checkout finalisation and
// audit administration over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/buyawarranty/warranty-quote/internal/checkout"
	"github.com/buyawarranty/warranty-quote/internal/config"
	"github.com/buyawarranty/warranty-quote/internal/model"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
	"github.com/buyawarranty/warranty-quote/internal/store"
)

// AuditReader is the read side of the audit store.
type AuditReader interface {
	GetAudit(ctx context.Context, id string) (*model.AuditRecord, error)
	ListAudits(ctx context.Context, filter store.AuditFilter) ([]model.AuditRecord, error)
}

// Deps are the services the router dispatches to.
type Deps struct {
	Resolver *pricing.Resolver
	Checkout *checkout.Service
	Audits   AuditReader
	Limiter  *RateLimiter
}

type server struct {
	resolver *pricing.Resolver
	checkout *checkout.Service
	store    AuditReader
}

// NewRouter builds the HTTP handler. A nil Limiter disables rate limiting.
func NewRouter(deps Deps, cfg config.ServerConfig) http.Handler {
	s := &server{resolver: deps.Resolver, checkout: deps.Checkout, store: deps.Audits}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(deps.Limiter.Middleware)
		}
		r.Route("/v1", func(r chi.Router) {
			r.Post("/quotes", s.handleQuote)
			r.Get("/quotes/grid", s.handleGrid)
			r.Post("/selection", s.handleSelection)
			r.Post("/checkout", s.handleCheckout)
		})
		r.Route("/admin/audits", func(r chi.Router) {
			r.Get("/", s.handleListAudits)
			r.Get("/{id}", s.handleGetAudit)
			r.Post("/{id}/sync", s.handleSyncAudit)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}
