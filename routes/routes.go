package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/diu-mct/access-guard/app"
	"github.com/diu-mct/access-guard/handlers"
	"github.com/diu-mct/access-guard/models"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Audit metadata and identity extraction apply everywhere
	r.Use(deps.GuardMiddleware.RequestMeta)
	r.Use(deps.GuardMiddleware.ExtractIdentity)

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	// Identity provider passthrough
	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-in", handlers.SignInHandler(deps))
		r.Post("/sign-out", handlers.SignOutHandler(deps))
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Page authorization decisions; the decision body drives the
		// front end's redirects, so the route itself is open
		r.Get("/pages/{page}/access", handlers.PageAccessHandler(deps))
		r.Get("/session", handlers.SessionStateHandler(deps))

		// Client telemetry intake (requires a signed-in user)
		r.Route("/telemetry", func(r chi.Router) {
			r.Use(deps.GuardMiddleware.RequireRole(models.RoleAny))
			r.Post("/navigation", handlers.NavigationHandler(deps))
			r.Post("/click", handlers.ClickHandler(deps))
			r.Post("/paste", handlers.PasteHandler(deps))
			r.Post("/window", handlers.WindowMetricsHandler(deps))
			r.Post("/activity", handlers.ActivityHandler(deps))
		})

		// AI service proxy (verified students only, rate limited)
		r.Route("/ai", func(r chi.Router) {
			r.Use(deps.GuardMiddleware.RequireRole(models.RoleStudent))
			r.Use(deps.GuardMiddleware.RateLimit)
			r.Post("/{service}", handlers.AIProxyHandler(deps))
		})

		// Security event queries (require admin)
		r.Route("/events", func(r chi.Router) {
			r.Use(deps.GuardMiddleware.RequireRole(models.RoleAdmin))
			r.Get("/", handlers.ListEventsHandler(deps))
			r.Get("/{id}", handlers.GetEventHandler(deps))
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
