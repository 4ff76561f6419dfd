package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authHandlers "Murmur/internal/api/handlers/auth"
	"Murmur/internal/api/middleware"
	"Murmur/internal/core/notifications"
	"Murmur/internal/core/posts"
	"Murmur/internal/core/users"
	"Murmur/internal/monitoring"
)

// Deps holds everything the router wires into handlers
type Deps struct {
	Users         users.Service
	Posts         posts.Service
	Notifications notifications.Service

	Sessions authHandlers.Sessions
	Auth     middleware.AuthMiddleware

	// RateLimiter is optional; nil disables rate limiting
	RateLimiter middleware.Limiter

	// Assets serves locally hosted images under /assets/ when non-nil
	Assets http.Handler

	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the HTTP handler for the whole API
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	monitoring.Register()

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(corsMiddleware(deps.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	if deps.Assets != nil {
		r.Handle("/assets/*", deps.Assets)
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware)
		}

		RegisterAuthRoutes(r, deps.Users, deps.Sessions, deps.Auth, logger)
		RegisterUserRoutes(r, deps.Users, deps.Auth, logger)
		RegisterPostRoutes(r, deps.Posts, deps.Auth, logger)
		RegisterNotificationRoutes(r, deps.Notifications, deps.Auth, logger)
	})

	return r
}

// corsMiddleware allows the web client's origins to send the session cookie
func corsMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Requested-With",
		},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	})
}
