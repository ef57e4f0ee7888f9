/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logging:    One structured log line per request
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend
  5. Auth:       Bearer JWT verification, acting context

ROUTE GROUPS:
  /api/employees/*   Employee records, balances, requests, statements
  /api/requests/*    Approval workflow
  /api/leave/*       Chargeable-days preview
  /api/policies/*    Policy management
  /api/holidays/*    Public holiday configuration
  /api/scenarios/*   Demo fixture loaders
  /api/admin/*       Adjustments, batch recalculation
  /metrics           Prometheus (unauthenticated)
  /healthz           Liveness (unauthenticated)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the router's external settings.
type RouterConfig struct {
	JWTSecret   string
	CORSOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(Logging(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Acting-Mode"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(Auth(cfg.JWTSecret))

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/balances", h.GetBalances)
			r.Get("/{id}/requests", h.GetRequests)
			r.Post("/{id}/requests", h.SubmitRequest)
			r.Get("/{id}/statement.pdf", h.GetStatement)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/pending", h.ListPendingRequests)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/decline", h.DeclineRequest)
			r.Post("/{id}/cancel", h.CancelRequest)
		})

		r.Route("/leave", func(r chi.Router) {
			r.Get("/chargeable", h.PreviewChargeable)
		})

		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.CreatePolicy)
			r.Post("/seed-defaults", h.SeedDefaultPolicies)
			r.Get("/{id}", h.GetPolicy)
			r.Delete("/{id}", h.DeletePolicy)
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/adjustments", h.CreateAdjustment)
			r.Post("/recalculate", h.TriggerRecalculation)
			r.Get("/recalc-runs", h.ListRecalcRuns)
		})

		r.Get("/cache/version", h.CacheVersion)
	})

	return r
}
