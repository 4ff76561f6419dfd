package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies the event that produced a notification
type Type string

const (
	TypeFollow Type = "follow"
	TypeLike   Type = "like"
)

// Notification is a directed event from one user to another.
// Only follows and likes create notifications; unfollows, unlikes and comments never do.
type Notification struct {
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
	ID        string    `json:"_id" bson:"_id" db:"id"`
	From      string    `json:"from" bson:"from" db:"from_user_id"`
	To        string    `json:"to" bson:"to" db:"to_user_id"`
	Type      Type      `json:"type" bson:"type" db:"type"`
	Read      bool      `json:"read" bson:"read" db:"read"`
}

// New builds an unread notification with a fresh id
func New(from, to string, typ Type) *Notification {
	now := time.Now().UTC()
	return &Notification{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Type:      typ,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Actor is the minimal public projection of the user that caused a notification
type Actor struct {
	ID         string `json:"_id"`
	Username   string `json:"username"`
	ProfileImg string `json:"profileImg"`
}

// View is a notification with its sender resolved, as returned to clients.
// From is nil when the sender no longer resolves.
type View struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	From      *Actor    `json:"from"`
	ID        string    `json:"_id"`
	To        string    `json:"to"`
	Type      Type      `json:"type"`
	Read      bool      `json:"read"`
}
