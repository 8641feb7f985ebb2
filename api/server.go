/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

ROUTES:
  POST /webhook               LINE webhook (signature-verified upstream)
  GET  /                      Liveness text
  GET  /healthz               Health probe
  GET  /api/roster            Current roster snapshot
  GET  /api/attendance/today  Today's entries
  GET  /api/cycle             Open pay cycle: period, advances, repayments

SECURITY NOTE:
  The /api read endpoints carry no authentication. The webhook is protected
  by LINE's request signature.

SEE ALSO:
  - handlers.go: Handler implementations
  - scheduler.go: Cron-driven triggers
  - cmd/bot/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, webhook http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Post("/webhook", webhook)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("check-in bot is running"))
	})
	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/roster", h.GetRoster)
		r.Get("/attendance/today", h.GetAttendanceToday)
		r.Get("/cycle", h.GetCycle)
	})

	return r
}
