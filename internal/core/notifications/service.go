package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type notificationService struct {
	repo   Repository
	actors ActorResolver
	logger *slog.Logger
}

// NewService creates a new notification service
func NewService(repo Repository, actors ActorResolver, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &notificationService{
		repo:   repo,
		actors: actors,
		logger: logger,
	}
}

// List returns the caller's notifications with senders resolved, then marks them read
func (s *notificationService) List(ctx context.Context, userID string) ([]*View, error) {
	items, err := s.repo.ListByRecipient(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	senders := make([]string, 0, len(items))
	for _, n := range items {
		senders = append(senders, n.From)
	}

	actors := map[string]*Actor{}
	if len(senders) > 0 {
		actors, err = s.actors.ResolveActors(ctx, senders)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve notification senders: %w", err)
		}
	}

	views := make([]*View, 0, len(items))
	for _, n := range items {
		views = append(views, &View{
			ID:        n.ID,
			From:      actors[n.From],
			To:        n.To,
			Type:      n.Type,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
			UpdatedAt: n.UpdatedAt,
		})
	}

	if len(items) > 0 {
		if err := s.MarkAllRead(ctx, userID); err != nil {
			return nil, err
		}
	}

	return views, nil
}

// MarkAllRead flags every notification addressed to userID as read
func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	changed, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	if changed > 0 {
		s.logger.Debug("notifications marked read", "user", userID, "count", changed)
	}
	return nil
}

// Delete removes one notification owned by userID
func (s *notificationService) Delete(ctx context.Context, userID, notificationID string) error {
	n, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to get notification: %w", err)
	}

	if n.To != userID {
		s.logger.Warn("notification delete rejected",
			"notification", notificationID,
			"recipient", n.To,
			"caller", userID)
		return ErrNotAuthorized
	}

	if err := s.repo.Delete(ctx, notificationID); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	s.logger.Info("notification deleted", "notification", notificationID, "user", userID)
	return nil
}

// DeleteAll removes every notification addressed to userID
func (s *notificationService) DeleteAll(ctx context.Context, userID string) error {
	deleted, err := s.repo.DeleteByRecipient(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}
	s.logger.Info("notifications cleared", "user", userID, "count", deleted)
	return nil
}
