package memory

import (
	"context"
	"sort"
	"time"

	"Murmur/internal/core/notifications"
)

type notificationRepo struct {
	store *Store
}

func (r *notificationRepo) Create(ctx context.Context, n *notifications.Notification) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.notifications[n.ID] = copyNotification(n)
	return nil
}

func (r *notificationRepo) GetByID(ctx context.Context, id string) (*notifications.Notification, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	n, ok := r.store.notifications[id]
	if !ok {
		return nil, notifications.ErrNotificationNotFound
	}
	return copyNotification(n), nil
}

func (r *notificationRepo) ListByRecipient(ctx context.Context, userID string) ([]*notifications.Notification, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*notifications.Notification, 0)
	for _, n := range r.store.notifications {
		if n.To == userID {
			out = append(out, copyNotification(n))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()
	var changed int64
	for _, n := range r.store.notifications {
		if n.To == userID && !n.Read {
			n.Read = true
			n.UpdatedAt = now
			changed++
		}
	}
	return changed, nil
}

func (r *notificationRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.notifications[id]; !ok {
		return notifications.ErrNotificationNotFound
	}
	delete(r.store.notifications, id)
	return nil
}

func (r *notificationRepo) DeleteByRecipient(ctx context.Context, userID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var deleted int64
	for id, n := range r.store.notifications {
		if n.To == userID {
			delete(r.store.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}
