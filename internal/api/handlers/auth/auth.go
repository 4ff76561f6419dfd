package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"Murmur/internal/api/handlers"
	"Murmur/internal/api/middleware"
	"Murmur/internal/core/users"
)

// Sessions writes and clears the session cookie
type Sessions interface {
	SetCookie(w http.ResponseWriter, userID string) error
	ClearCookie(w http.ResponseWriter)
}

// Accounts is the subset of the user service the auth endpoints call
type Accounts interface {
	Signup(ctx context.Context, req users.SignupRequest) (*users.User, error)
	Login(ctx context.Context, req users.LoginRequest) (*users.User, error)
}

// Handler serves signup, login, logout and the current-user endpoint
type Handler struct {
	accounts Accounts
	sessions Sessions
	logger   *slog.Logger
}

// NewHandler creates a new auth handler
func NewHandler(accounts Accounts, sessions Sessions, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{accounts: accounts, sessions: sessions, logger: logger}
}

// HandleSignup handles POST /api/auth/signup
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req users.SignupRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.WriteDecodeError(w, err)
		return
	}

	user, err := h.accounts.Signup(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.startSession(w, user)
}

// HandleLogin handles POST /api/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req users.LoginRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.WriteDecodeError(w, err)
		return
	}

	user, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.startSession(w, user)
}

// HandleLogout handles POST /api/auth/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	handlers.WriteMessage(w, http.StatusOK, "Logged out successfully")
}

// HandleMe handles GET /api/auth/me
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		handlers.WriteError(w, http.StatusUnauthorized, "Unauthorized: No Token Provided")
		return
	}
	handlers.WriteJSON(w, http.StatusOK, user.Public())
}

func (h *Handler) startSession(w http.ResponseWriter, user *users.User) {
	if err := h.sessions.SetCookie(w, user.ID); err != nil {
		handlers.WriteInternalError(w, h.logger, "failed to issue session", err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, user.Public())
}

// handleServiceError maps service errors to HTTP responses
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	if valErr, ok := users.AsValidationError(err); ok {
		handlers.WriteError(w, http.StatusBadRequest, valErr.Message)
		return
	}

	switch {
	case errors.Is(err, users.ErrInvalidCredentials):
		handlers.WriteError(w, http.StatusBadRequest, "Invalid username or password")
	case errors.Is(err, users.ErrUserNotFound):
		handlers.WriteError(w, http.StatusNotFound, "User not found")
	default:
		handlers.WriteInternalError(w, h.logger, "auth request failed", err)
	}
}
