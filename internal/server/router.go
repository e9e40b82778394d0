package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/bounty-warden/internal/config"
	"github.com/sevigo/bounty-warden/internal/core"
	"github.com/sevigo/bounty-warden/internal/server/handler"
)

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(cfg *config.Config, prs handler.PRService, mappings core.MappingStore, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	validate := handler.NewValidator()

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		webhookHandler := handler.NewWebhookHandler(cfg, prs, logger)
		r.Post("/webhook/github", webhookHandler.Handle)

		prHandler := handler.NewPRHandler(prs, cfg.Payments.Currency, validate, logger)
		r.Get("/prs", prHandler.List)
		r.Delete("/prs", prHandler.Delete)
		r.Post("/prs/poll", prHandler.Poll)
		r.Post("/prs/credit", prHandler.Credit)

		mappingHandler := handler.NewMappingHandler(mappings, validate, logger)
		r.Get("/mappings", mappingHandler.List)
		r.Post("/mappings", mappingHandler.Set)
		r.Delete("/mappings", mappingHandler.Delete)
	})

	return r
}
