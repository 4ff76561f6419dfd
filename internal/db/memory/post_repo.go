package memory

import (
	"context"
	"sort"
	"time"

	"Murmur/internal/core/notifications"
	"Murmur/internal/core/posts"
	"Murmur/internal/core/users"
)

type postRepo struct {
	store *Store
}

func (r *postRepo) Create(ctx context.Context, post *posts.Post) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	post.Normalize()
	r.store.posts[post.ID] = copyPost(post)
	return nil
}

func (r *postRepo) GetByID(ctx context.Context, id string) (*posts.Post, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.posts[id]
	if !ok {
		return nil, posts.ErrNotFound
	}
	return copyPost(p), nil
}

func (r *postRepo) AddComment(ctx context.Context, postID string, c posts.Comment) (*posts.Post, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.posts[postID]
	if !ok {
		return nil, posts.ErrNotFound
	}
	p.Comments = append(p.Comments, c)
	p.UpdatedAt = c.CreatedAt
	return copyPost(p), nil
}

func (r *postRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.posts[id]; !ok {
		return posts.ErrNotFound
	}
	delete(r.store.posts, id)
	return nil
}

func (r *postRepo) List(ctx context.Context) ([]*posts.Post, error) {
	return r.filter(func(*posts.Post) bool { return true }), nil
}

func (r *postRepo) ListByAuthors(ctx context.Context, authorIDs []string) ([]*posts.Post, error) {
	authors := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = true
	}
	return r.filter(func(p *posts.Post) bool { return authors[p.UserID] }), nil
}

func (r *postRepo) ListByIDs(ctx context.Context, ids []string) ([]*posts.Post, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return r.filter(func(p *posts.Post) bool { return wanted[p.ID] }), nil
}

func (r *postRepo) AddLike(ctx context.Context, postID, userID string, n *notifications.Notification) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, u, err := r.like(postID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if p.Likes.Add(userID) {
		p.UpdatedAt = now
	}
	if u.LikedPosts.Add(postID) {
		u.UpdatedAt = now
	}
	if n != nil {
		r.store.notifications[n.ID] = copyNotification(n)
	}
	return p.Likes.Strings(), nil
}

func (r *postRepo) RemoveLike(ctx context.Context, postID, userID string) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, u, err := r.like(postID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if p.Likes.Remove(userID) {
		p.UpdatedAt = now
	}
	if u.LikedPosts.Remove(postID) {
		u.UpdatedAt = now
	}
	return p.Likes.Strings(), nil
}

// like returns the stored post and user on both ends of a like; caller holds the lock
func (r *postRepo) like(postID, userID string) (*posts.Post, *users.User, error) {
	p, ok := r.store.posts[postID]
	if !ok {
		return nil, nil, posts.ErrNotFound
	}
	u, ok := r.store.users[userID]
	if !ok {
		return nil, nil, users.ErrUserNotFound
	}
	return p, u, nil
}

// filter returns copies of matching posts, newest first
func (r *postRepo) filter(keep func(*posts.Post) bool) []*posts.Post {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*posts.Post, 0)
	for _, p := range r.store.posts {
		if keep(p) {
			out = append(out, copyPost(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
