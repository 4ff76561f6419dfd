package notifications

import "errors"

var (
	// ErrNotificationNotFound is returned when a notification lookup finds no matching record
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrNotAuthorized is returned when a user acts on a notification addressed to someone else
	ErrNotAuthorized = errors.New("not authorized to modify this notification")
)
