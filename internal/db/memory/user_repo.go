package memory

import (
	"context"
	"math/rand"
	"time"

	"Murmur/internal/core/notifications"
	"Murmur/internal/core/users"
)

type userRepo struct {
	store *Store
}

func (r *userRepo) Create(ctx context.Context, user *users.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.checkUnique(user); err != nil {
		return err
	}
	user.Normalize()
	r.store.users[user.ID] = copyUser(user)
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, users.ErrUserNotFound
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, users.ErrUserNotFound
}

func (r *userRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*users.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make(map[string]*users.User, len(ids))
	for _, id := range ids {
		if u, ok := r.store.users[id]; ok {
			result[id] = copyUser(u)
		}
	}
	return result, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, user *users.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.users[user.ID]
	if !ok {
		return users.ErrUserNotFound
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}

	stored.Username = user.Username
	stored.Email = user.Email
	stored.PasswordHash = user.PasswordHash
	stored.FullName = user.FullName
	stored.Bio = user.Bio
	stored.Link = user.Link
	stored.ProfileImg = user.ProfileImg
	stored.CoverImg = user.CoverImg
	stored.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *userRepo) Sample(ctx context.Context, excludeID string, size int) ([]*users.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	candidates := make([]*users.User, 0, len(r.store.users))
	for id, u := range r.store.users {
		if id != excludeID {
			candidates = append(candidates, u)
		}
	}
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > size {
		candidates = candidates[:size]
	}

	out := make([]*users.User, 0, len(candidates))
	for _, u := range candidates {
		out = append(out, copyUser(u))
	}
	return out, nil
}

func (r *userRepo) AddFollow(ctx context.Context, followerID, targetID string, n *notifications.Notification) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	follower, target, err := r.edge(followerID, targetID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if follower.Following.Add(targetID) {
		follower.UpdatedAt = now
	}
	if target.Followers.Add(followerID) {
		target.UpdatedAt = now
	}
	if n != nil {
		r.store.notifications[n.ID] = copyNotification(n)
	}
	return nil
}

func (r *userRepo) RemoveFollow(ctx context.Context, followerID, targetID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	follower, target, err := r.edge(followerID, targetID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if follower.Following.Remove(targetID) {
		follower.UpdatedAt = now
	}
	if target.Followers.Remove(followerID) {
		target.UpdatedAt = now
	}
	return nil
}

// edge returns the stored documents on both ends of a follow; caller holds the lock
func (r *userRepo) edge(followerID, targetID string) (*users.User, *users.User, error) {
	follower, ok := r.store.users[followerID]
	if !ok {
		return nil, nil, users.ErrUserNotFound
	}
	target, ok := r.store.users[targetID]
	if !ok {
		return nil, nil, users.ErrUserNotFound
	}
	return follower, target, nil
}

// checkUnique enforces the username and email unique indexes; caller holds the lock
func (r *userRepo) checkUnique(user *users.User) error {
	for id, u := range r.store.users {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username {
			return users.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return users.ErrEmailTaken
		}
	}
	return nil
}
