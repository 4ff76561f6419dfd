package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	authHandlers "Murmur/internal/api/handlers/auth"
	"Murmur/internal/api/middleware"
)

// RegisterAuthRoutes registers signup, login, logout and me under /api/auth
func RegisterAuthRoutes(r chi.Router, accounts authHandlers.Accounts, sessions authHandlers.Sessions, authMiddleware middleware.AuthMiddleware, logger *slog.Logger) {
	h := authHandlers.NewHandler(accounts, sessions, logger)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.HandleSignup)
		r.Post("/login", h.HandleLogin)
		r.Post("/logout", h.HandleLogout)
		r.With(authMiddleware.RequireAuth).Get("/me", h.HandleMe)
	})
}
