package post

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Murmur/internal/api/handlers"
	"Murmur/internal/api/middleware"
	"Murmur/internal/core/posts"
	"Murmur/internal/core/users"
)

// CommentRequest is the body of POST /api/post/comment/{id}
type CommentRequest struct {
	Text string `json:"text" validate:"max=2000"`
}

// Handler serves post, like, comment and feed endpoints
type Handler struct {
	service posts.Service
	logger  *slog.Logger
}

// NewHandler creates a new post handler
func NewHandler(service posts.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// HandleCreate handles POST /api/post/create
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req posts.CreatePostRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.WriteDecodeError(w, err)
		return
	}

	view, err := h.service.CreatePost(r.Context(), middleware.GetUserID(r), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, view)
}

// HandleDelete handles DELETE /api/post/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePost(r.Context(), middleware.GetUserID(r), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteMessage(w, http.StatusOK, "Post deleted successfully")
}

// HandleLike handles POST /api/post/like/{id} and returns the resulting like set
func (h *Handler) HandleLike(w http.ResponseWriter, r *http.Request) {
	likes, err := h.service.ToggleLike(r.Context(), middleware.GetUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, likes)
}

// HandleComment handles POST /api/post/comment/{id}
func (h *Handler) HandleComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.WriteDecodeError(w, err)
		return
	}

	view, err := h.service.Comment(r.Context(), middleware.GetUserID(r), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, view)
}

// HandleAll handles GET /api/post/all
func (h *Handler) HandleAll(w http.ResponseWriter, r *http.Request) {
	h.writeFeed(w)(h.service.AllPosts(r.Context()))
}

// HandleFollowing handles GET /api/post/following
func (h *Handler) HandleFollowing(w http.ResponseWriter, r *http.Request) {
	h.writeFeed(w)(h.service.FollowingFeed(r.Context(), middleware.GetUserID(r)))
}

// HandleUserPosts handles GET /api/post/user/{username}
func (h *Handler) HandleUserPosts(w http.ResponseWriter, r *http.Request) {
	h.writeFeed(w)(h.service.UserFeed(r.Context(), chi.URLParam(r, "username")))
}

// HandleLiked handles GET /api/post/likes/{id}
func (h *Handler) HandleLiked(w http.ResponseWriter, r *http.Request) {
	h.writeFeed(w)(h.service.LikedFeed(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) writeFeed(w http.ResponseWriter) func([]*posts.PostView, error) {
	return func(feed []*posts.PostView, err error) {
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		if feed == nil {
			feed = []*posts.PostView{}
		}
		handlers.WriteJSON(w, http.StatusOK, feed)
	}
}

// handleServiceError maps service errors to HTTP responses
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	if valErr, ok := posts.AsValidationError(err); ok {
		handlers.WriteError(w, http.StatusBadRequest, valErr.Message)
		return
	}

	switch {
	case errors.Is(err, posts.ErrNotFound):
		handlers.WriteError(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, users.ErrUserNotFound):
		handlers.WriteError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, posts.ErrNotAuthorized):
		handlers.WriteError(w, http.StatusForbidden, "You are not authorized to delete this post")
	default:
		handlers.WriteInternalError(w, h.logger, "post request failed", err)
	}
}
