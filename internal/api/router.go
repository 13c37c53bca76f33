package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/chloekuoi/cowork-connect/internal/api/middleware"
	"github.com/chloekuoi/cowork-connect/internal/config"
	"github.com/chloekuoi/cowork-connect/internal/handlers"
	"github.com/chloekuoi/cowork-connect/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, cfg *config.Config, db store.DataStore, redisStore *store.RedisStore) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(16 * 1024)) // 16KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting
	limiter := middleware.NewRateLimiter(redisStore.Client(), logger, middleware.RateLimiterConfig{
		PerMinute: cfg.RateLimitPerMinute,
		Whitelist: cfg.RateLimitWhitelist,
	})
	r.Use(limiter.Middleware)

	// CORS - mobile clients call from anywhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Create handler and auth middleware
	h := handlers.NewHandler(db, redisStore, cfg.DiscoveryRadiusKM)
	auth := middleware.NewAuthMiddleware(db, redisStore)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Get("/", h.Root)
	r.Get("/api", h.Root)
	r.Get("/health", h.Health)
	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)

	// Authenticated routes (require bearer token)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/me", h.Me)
		r.Patch("/me", h.UpdateMe)
		r.Get("/who/{userID}", h.Who)

		r.Put("/intent", h.UpsertIntent)
		r.Get("/intent", h.GetIntent)
		r.Get("/discover", h.Discover)
		r.Post("/swipes", h.Swipe)

		r.Get("/matches", h.ListMatches)
		r.Get("/unread", h.Unread)
		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Get("/messages", h.ListMessages)
			r.Post("/messages", h.SendMessage)
			r.Get("/messages/stream", h.StreamMessages)
			r.Post("/read", h.MarkRead)
			r.Get("/sessions", h.ListSessions)
		})

		r.Post("/sessions", h.CreateSession)
		r.Get("/session-events", h.ListSessionEvents)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/respond", h.RespondToSession)
			r.Post("/cancel", h.CancelSession)
			r.Post("/lockin", h.LockInSession)
			r.Get("/stream", h.StreamSession)
			r.Get("/events/stream", h.StreamSessionEvents)
		})
	})

	return r
}
