package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"Murmur/internal/api/handlers/post"
	"Murmur/internal/api/middleware"
	"Murmur/internal/core/posts"
)

// RegisterPostRoutes registers feed, create, delete, like and comment endpoints under /api/post
func RegisterPostRoutes(r chi.Router, service posts.Service, authMiddleware middleware.AuthMiddleware, logger *slog.Logger) {
	h := post.NewHandler(service, logger)

	r.Route("/api/post", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Get("/all", h.HandleAll)
		r.Get("/following", h.HandleFollowing)
		r.Get("/user/{username}", h.HandleUserPosts)
		r.Get("/likes/{id}", h.HandleLiked)

		r.Post("/create", h.HandleCreate)
		r.Post("/like/{id}", h.HandleLike)
		r.Post("/comment/{id}", h.HandleComment)
		r.Delete("/{id}", h.HandleDelete)
	})
}
