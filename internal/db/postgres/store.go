package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"Murmur/internal/core/notifications"
	"Murmur/internal/core/posts"
	"Murmur/internal/core/sets"
	"Murmur/internal/core/users"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so single-document helpers
// can run inside or outside a transaction
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store groups the PostgreSQL repositories over one connection pool
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Users returns the PostgreSQL user repository
func (s *Store) Users() users.Repository {
	return NewUserRepository(s.db)
}

// Posts returns the PostgreSQL post repository
func (s *Store) Posts() posts.Repository {
	return NewPostRepository(s.db)
}

// Notifications returns the PostgreSQL notification repository
func (s *Store) Notifications() notifications.Repository {
	return NewNotificationRepository(s.db)
}

// withTx runs fn in a transaction, committing when it returns nil
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			slog.Error("failed to rollback transaction", "error", rollbackErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// uniqueViolation returns the violated constraint name for a unique_violation error
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}
	return "", false
}

func insertNotification(ctx context.Context, q queryer, n *notifications.Notification) error {
	query := `
		INSERT INTO notifications (id, from_user_id, to_user_id, type, read, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := q.ExecContext(ctx, query, n.ID, n.From, n.To, string(n.Type), n.Read, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// arrayAdd appends $2 to an array column unless it is already a member
func arrayAdd(column string) string {
	return fmt.Sprintf("CASE WHEN $2::text = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2::text) END", column)
}

// arrayRemove drops every occurrence of $2 from an array column
func arrayRemove(column string) string {
	return fmt.Sprintf("array_remove(%s, $2::text)", column)
}

// updateArray sets column to expr on the row with id and returns the stored array.
// The expression is evaluated against the latest row version, so concurrent
// updates of the same array by different members are all kept.
// Returns sql.ErrNoRows when no row has that id.
func updateArray(ctx context.Context, q queryer, table, column, expr, id, member string) ([]string, error) {
	query := fmt.Sprintf(
		`UPDATE %s SET %s = %s, updated_at = NOW() WHERE id = $1 RETURNING %s`,
		table, column, expr, column)

	var out pq.StringArray
	if err := q.QueryRowContext(ctx, query, id, member).Scan(&out); err != nil {
		return nil, err
	}
	return sets.IDSet(out).Strings(), nil
}
