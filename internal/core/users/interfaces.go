package users

import (
	"context"

	"Murmur/internal/core/notifications"
)

// Repository defines the interface for user persistence
type Repository interface {
	// Create inserts a new user.
	// Returns ErrUsernameTaken or ErrEmailTaken when a unique index rejects it.
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByIDs retrieves multiple users in one query.
	// Missing users are not included in the result map (no error for missing users).
	GetByIDs(ctx context.Context, ids []string) (map[string]*User, error)

	// UpdateProfile writes the scalar profile fields and the password hash.
	// The follower, following and liked-post sets are left as stored.
	UpdateProfile(ctx context.Context, user *User) error

	// Sample returns up to size random users, never the one with excludeID
	Sample(ctx context.Context, excludeID string, size int) ([]*User, error)

	// AddFollow adds targetID to the follower's following set and followerID to the
	// target's followers set, storing n when non-nil. Each set update is applied in
	// place on the stored document, so concurrent edges on other users are kept.
	AddFollow(ctx context.Context, followerID, targetID string, n *notifications.Notification) error

	// RemoveFollow removes the edge from both sets
	RemoveFollow(ctx context.Context, followerID, targetID string) error
}

// Service defines the interface for account and social-graph business logic
type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetProfile(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*User, error)

	// ToggleFollow follows targetID, or unfollows it when already following
	ToggleFollow(ctx context.Context, userID, targetID string) (FollowAction, error)

	// SuggestedUsers samples other users the caller does not follow yet.
	// An empty result is not an error.
	SuggestedUsers(ctx context.Context, userID string) ([]*User, error)
}
