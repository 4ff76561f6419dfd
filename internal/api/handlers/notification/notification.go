package notification

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Murmur/internal/api/handlers"
	"Murmur/internal/api/middleware"
	"Murmur/internal/core/notifications"
)

// Handler serves the caller's notification inbox
type Handler struct {
	service notifications.Service
	logger  *slog.Logger
}

// NewHandler creates a new notification handler
func NewHandler(service notifications.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// HandleList handles GET /api/notification.
// Listing marks the notifications read; the response shows their prior state.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), middleware.GetUserID(r))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if list == nil {
		list = []*notifications.View{}
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}

// HandleMarkRead handles POST /api/notification/read
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkAllRead(r.Context(), middleware.GetUserID(r)); err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteMessage(w, http.StatusOK, "Notifications marked as read")
}

// HandleDeleteAll handles DELETE /api/notification
func (h *Handler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAll(r.Context(), middleware.GetUserID(r)); err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteMessage(w, http.StatusOK, "Notifications deleted successfully")
}

// HandleDelete handles DELETE /api/notification/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.GetUserID(r), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteMessage(w, http.StatusOK, "Notification deleted successfully")
}

// handleServiceError maps service errors to HTTP responses
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notifications.ErrNotificationNotFound):
		handlers.WriteError(w, http.StatusNotFound, "Notification not found")
	case errors.Is(err, notifications.ErrNotAuthorized):
		handlers.WriteError(w, http.StatusForbidden, "You are not authorized to delete this notification")
	default:
		handlers.WriteInternalError(w, h.logger, "notification request failed", err)
	}
}
