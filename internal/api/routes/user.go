package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"Murmur/internal/api/handlers/user"
	"Murmur/internal/api/middleware"
	"Murmur/internal/core/users"
)

// RegisterUserRoutes registers profile, follow and suggestion endpoints under /api/user
func RegisterUserRoutes(r chi.Router, service users.Service, authMiddleware middleware.AuthMiddleware, logger *slog.Logger) {
	h := user.NewHandler(service, logger)

	r.Route("/api/user", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Get("/profile/{username}", h.HandleGetProfile)
		r.Get("/suggested", h.HandleSuggested)
		r.Post("/follow/{id}", h.HandleFollow)
		r.Post("/update", h.HandleUpdate)
	})
}
