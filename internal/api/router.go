package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/chats/internal/api/middleware"
	"github.com/eldtechnologies/chats/internal/crypto"
	"github.com/eldtechnologies/chats/internal/handlers"
	"github.com/eldtechnologies/chats/internal/store"
)

const defaultMaxBodyBytes = 16 * 1024

// Options configures the router.
type Options struct {
	MaxBodyBytes int64
	OpenInvites  bool
	RateLimit    middleware.RateLimiterConfig
}

// NewRouter creates and configures the HTTP router. Rate limiting is only
// mounted when redisStore is non-nil.
func NewRouter(logger zerolog.Logger, db store.DataStore, redisStore *store.RedisStore, tokens *crypto.TokenIssuer, opts Options) *chi.Mux {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	rateLimit := func(next http.Handler) http.Handler { return next }
	if redisStore != nil {
		rateLimit = middleware.NewRateLimiter(redisStore, logger, opts.RateLimit).Middleware
	}

	h := handlers.NewHandler(db, redisStore, tokens, logger, handlers.Options{OpenInvites: opts.OpenInvites})
	auth := middleware.NewAuthMiddleware(db, tokens)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api", h.Root)
	r.Get("/health", h.Health)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(rateLimit)

		r.Post("/auth/register", h.Register)
		r.Post("/auth/token", h.Token)
	})

	// Authenticated routes (require bearer token)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Use(rateLimit)

		r.Get("/users/me", h.Me)
		r.Get("/users/{id}", h.GetUser)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.ListConversations)
			r.Post("/", h.CreateConversation)
			r.Get("/{id}", h.GetConversation)
			r.Patch("/{id}", h.UpdateConversation)
			r.Delete("/{id}", h.DeleteConversation)
			r.Post("/{id}/add_participant", h.AddParticipant)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", h.ListMessages)
			r.Post("/", h.CreateMessage)
			r.Get("/recent", h.RecentMessages)
			r.Get("/{id}", h.GetMessage)
		})
	})

	return r
}
