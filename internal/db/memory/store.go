package memory

import (
	"sync"

	"Murmur/internal/core/notifications"
	"Murmur/internal/core/posts"
	"Murmur/internal/core/users"
)

// Store keeps every document in process memory behind one lock.
// Documents are copied on the way in and out, so callers mutating a returned
// value never change stored state. Set and comment updates are applied to the
// stored documents while the write lock is held.
type Store struct {
	users         map[string]*users.User
	posts         map[string]*posts.Post
	notifications map[string]*notifications.Notification
	mu            sync.RWMutex
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:         make(map[string]*users.User),
		posts:         make(map[string]*posts.Post),
		notifications: make(map[string]*notifications.Notification),
	}
}

// Users returns the user repository backed by this store
func (s *Store) Users() users.Repository {
	return &userRepo{store: s}
}

// Posts returns the post repository backed by this store
func (s *Store) Posts() posts.Repository {
	return &postRepo{store: s}
}

// Notifications returns the notification repository backed by this store
func (s *Store) Notifications() notifications.Repository {
	return &notificationRepo{store: s}
}

func copyUser(u *users.User) *users.User {
	c := *u
	c.Followers = u.Followers.Clone()
	c.Following = u.Following.Clone()
	c.LikedPosts = u.LikedPosts.Clone()
	return &c
}

func copyPost(p *posts.Post) *posts.Post {
	c := *p
	c.Likes = p.Likes.Clone()
	c.Comments = make([]posts.Comment, len(p.Comments))
	copy(c.Comments, p.Comments)
	return &c
}

func copyNotification(n *notifications.Notification) *notifications.Notification {
	c := *n
	return &c
}
