package notifications

import "context"

// Repository defines persistence for notifications.
// Follow and like notifications are inserted by the users and posts repositories
// inside the same transaction as the documents they describe; Create exists for
// standalone inserts and tests.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)

	// ListByRecipient returns every notification addressed to userID, newest first
	ListByRecipient(ctx context.Context, userID string) ([]*Notification, error)

	// MarkAllRead flags every notification addressed to userID as read.
	// Returns the number of notifications that changed.
	MarkAllRead(ctx context.Context, userID string) (int64, error)

	Delete(ctx context.Context, id string) error
	DeleteByRecipient(ctx context.Context, userID string) (int64, error)
}

// ActorResolver maps user ids to the public fields shown next to a notification.
// Ids that do not resolve are absent from the result.
type ActorResolver interface {
	ResolveActors(ctx context.Context, ids []string) (map[string]*Actor, error)
}

// Service defines notification business logic
type Service interface {
	// List returns the caller's notifications and then marks them read.
	// The returned items carry their state from before the update.
	List(ctx context.Context, userID string) ([]*View, error)
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID, notificationID string) error
	DeleteAll(ctx context.Context, userID string) error
}
