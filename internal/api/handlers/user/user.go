package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Murmur/internal/api/handlers"
	"Murmur/internal/api/middleware"
	"Murmur/internal/core/users"
)

// Handler serves profile, follow and suggestion endpoints
type Handler struct {
	service users.Service
	logger  *slog.Logger
}

// NewHandler creates a new user handler
func NewHandler(service users.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// HandleGetProfile handles GET /api/user/profile/{username}
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, user.Public())
}

// HandleSuggested handles GET /api/user/suggested
func (h *Handler) HandleSuggested(w http.ResponseWriter, r *http.Request) {
	suggested, err := h.service.SuggestedUsers(r.Context(), middleware.GetUserID(r))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	out := make([]*users.PublicUser, 0, len(suggested))
	for _, u := range suggested {
		out = append(out, u.Public())
	}
	handlers.WriteJSON(w, http.StatusOK, out)
}

// HandleFollow handles POST /api/user/follow/{id}; a second call undoes the first
func (h *Handler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	action, err := h.service.ToggleFollow(r.Context(), middleware.GetUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	message := "User followed successfully"
	if action == users.Unfollowed {
		message = "User unfollowed successfully"
	}
	handlers.WriteMessage(w, http.StatusOK, message)
}

// HandleUpdate handles POST /api/user/update
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req users.UpdateProfileRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.WriteDecodeError(w, err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), middleware.GetUserID(r), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, user.Public())
}

// handleServiceError maps service errors to HTTP responses
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	if valErr, ok := users.AsValidationError(err); ok {
		handlers.WriteError(w, http.StatusBadRequest, valErr.Message)
		return
	}

	switch {
	case errors.Is(err, users.ErrUserNotFound):
		handlers.WriteError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, users.ErrInvalidCredentials):
		handlers.WriteError(w, http.StatusBadRequest, "Invalid username or password")
	default:
		handlers.WriteInternalError(w, h.logger, "user request failed", err)
	}
}
