package posts

import (
	"context"

	"Murmur/internal/core/notifications"
	"Murmur/internal/core/users"
)

// Service defines the business logic interface for posts
type Service interface {
	CreatePost(ctx context.Context, userID string, req CreatePostRequest) (*PostView, error)

	// DeletePost removes the caller's own post, destroying its image first
	DeletePost(ctx context.Context, userID, postID string) error

	// ToggleLike likes the post, or unlikes it when already liked.
	// Returns the resulting like set.
	ToggleLike(ctx context.Context, userID, postID string) ([]string, error)

	Comment(ctx context.Context, userID, postID, text string) (*PostView, error)

	// Feeds, newest first, with authors resolved
	AllPosts(ctx context.Context) ([]*PostView, error)
	FollowingFeed(ctx context.Context, userID string) ([]*PostView, error)
	UserFeed(ctx context.Context, username string) ([]*PostView, error)
	LikedFeed(ctx context.Context, userID string) ([]*PostView, error)
}

// Repository defines the data access interface for posts.
// List methods return posts newest first; an empty id list yields an empty result.
type Repository interface {
	Create(ctx context.Context, post *Post) error
	GetByID(ctx context.Context, id string) (*Post, error)

	Delete(ctx context.Context, id string) error

	List(ctx context.Context) ([]*Post, error)
	ListByAuthors(ctx context.Context, authorIDs []string) ([]*Post, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Post, error)

	// AddComment appends c to the stored comment sequence and returns the updated post
	AddComment(ctx context.Context, postID string, c Comment) (*Post, error)

	// AddLike adds userID to the post's likes and postID to the user's likedPosts,
	// storing n when non-nil. Returns the stored like set after the update.
	AddLike(ctx context.Context, postID, userID string, n *notifications.Notification) ([]string, error)

	// RemoveLike removes the like from both sets and returns the stored like set
	RemoveLike(ctx context.Context, postID, userID string) ([]string, error)
}

// AuthorResolver resolves user ids to public profiles for feed population
type AuthorResolver interface {
	Resolve(ctx context.Context, ids []string) (map[string]*users.PublicUser, error)
	Invalidate(ids ...string)
}
