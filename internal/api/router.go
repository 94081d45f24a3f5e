package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ejsmile/systech-aidd/internal/api/middleware"
	"github.com/ejsmile/systech-aidd/internal/handlers"
)

// NewRouter creates and configures the HTTP router. redisClient may be nil;
// rate limiting is then disabled.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, redisClient *redis.Client, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting
	limiter := middleware.NewRateLimiter(redisClient, logger)
	r.Use(limiter.Middleware)

	// CORS for the dashboard frontend
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/statistics", h.GetStatistics)
		r.Post("/chat/message", h.SendChatMessage)
		r.Get("/chat/history/{userID}", h.GetChatHistory)
		r.Delete("/chat/history/{userID}", h.ClearChatHistory)
		r.Post("/admin/query", h.AdminQuery)
	})

	return r
}
