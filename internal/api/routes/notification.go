package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"Murmur/internal/api/handlers/notification"
	"Murmur/internal/api/middleware"
	"Murmur/internal/core/notifications"
)

// RegisterNotificationRoutes registers the notification inbox under /api/notification
func RegisterNotificationRoutes(r chi.Router, service notifications.Service, authMiddleware middleware.AuthMiddleware, logger *slog.Logger) {
	h := notification.NewHandler(service, logger)

	r.Route("/api/notification", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Get("/", h.HandleList)
		r.Delete("/", h.HandleDeleteAll)
		r.Post("/read", h.HandleMarkRead)
		r.Delete("/{id}", h.HandleDelete)
	})
}
