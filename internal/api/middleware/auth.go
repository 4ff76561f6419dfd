package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"Murmur/internal/auth"
	"Murmur/internal/core/users"
)

// Context keys for storing user information
type contextKey string

const (
	UserIDKey contextKey = "user_id"
	UserKey   contextKey = "user"
)

// AuthMiddleware guards routes that need an authenticated caller
type AuthMiddleware interface {
	RequireAuth(next http.Handler) http.Handler
}

// TokenValidator resolves a session token to a user id
type TokenValidator interface {
	Validate(token string) (string, error)
}

// UserLookup loads the account a session belongs to
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

// SessionAuthMiddleware enforces cookie session authentication for protected routes
type SessionAuthMiddleware struct {
	tokens TokenValidator
	users  UserLookup
	logger *slog.Logger
}

// NewSessionAuthMiddleware creates a new session auth middleware
func NewSessionAuthMiddleware(tokens TokenValidator, users UserLookup, logger *slog.Logger) *SessionAuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionAuthMiddleware{tokens: tokens, users: users, logger: logger}
}

// RequireAuth ensures the request carries a valid session cookie for an existing user.
// On success the user id and the loaded user are injected into the context.
func (m *SessionAuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.TokenFromRequest(r)
		if token == "" {
			writeAuthError(w, http.StatusUnauthorized, "Unauthorized: No Token Provided")
			return
		}

		userID, err := m.tokens.Validate(token)
		if err != nil {
			m.logger.Info("session rejected",
				"ip", getClientIP(r), "method", r.Method, "path", r.URL.Path, "error", err)
			writeAuthError(w, http.StatusUnauthorized, "Unauthorized: Invalid Token")
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, users.ErrUserNotFound) {
				writeAuthError(w, http.StatusNotFound, "User not found")
				return
			}
			m.logger.Error("failed to load session user", "user_id", userID, "error", err)
			writeAuthError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
		ctx = context.WithValue(ctx, UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the authenticated user's id from the request context
// Returns empty string if not authenticated
func GetUserID(r *http.Request) string {
	id, _ := r.Context().Value(UserIDKey).(string)
	return id
}

// GetUser extracts the authenticated user from the request context
// Returns nil if not authenticated
func GetUser(r *http.Request) *users.User {
	user, _ := r.Context().Value(UserKey).(*users.User)
	return user
}

// SetTestUser sets the authenticated user in the context for testing purposes
// This function should ONLY be used in tests to mock authenticated users
func SetTestUser(ctx context.Context, user *users.User) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, user.ID)
	return context.WithValue(ctx, UserKey, user)
}

// writeAuthError writes a JSON error response for authentication failures
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		slog.Error("failed to write auth error response", "error", err)
	}
}
