package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"Murmur/internal/core/notifications"
	"Murmur/internal/core/sets"
	"Murmur/internal/core/users"
)

const userColumns = `id, username, email, password_hash, full_name, bio, link, profile_img, cover_img,
	followers, following, liked_posts, created_at, updated_at`

type postgresUserRepo struct {
	db *sql.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB) users.Repository {
	return &postgresUserRepo{db: db}
}

// Create inserts a new user into the users table
func (r *postgresUserRepo) Create(ctx context.Context, user *users.User) error {
	user.Normalize()
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query, userArgs(user)...)
	if err != nil {
		return mapUserWriteError(err, "failed to create user")
	}
	return nil
}

// GetByID retrieves a user by id
func (r *postgresUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByUsername retrieves a user by username
func (r *postgresUserRepo) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// GetByEmail retrieves a user by email
func (r *postgresUserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

const MaxBatchSize = 1000

// GetByIDs retrieves multiple users in a single query
// Missing users are not included in the result map (no error for missing users)
func (r *postgresUserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*users.User, error) {
	if len(ids) == 0 {
		return make(map[string]*users.User), nil
	}
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("batch size %d exceeds maximum %d", len(ids), MaxBatchSize)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]*users.User, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return result, nil
}

// UpdateProfile writes the scalar profile columns; the id arrays are left untouched
func (r *postgresUserRepo) UpdateProfile(ctx context.Context, user *users.User) error {
	query := `
		UPDATE users SET
			username = $2,
			email = $3,
			password_hash = $4,
			full_name = $5,
			bio = $6,
			link = $7,
			profile_img = $8,
			cover_img = $9,
			updated_at = $10
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.FullName,
		user.Bio, user.Link, user.ProfileImg, user.CoverImg, user.UpdatedAt)
	if err != nil {
		return mapUserWriteError(err, "failed to update user")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rowsAffected == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

// Sample returns up to size random users other than excludeID
func (r *postgresUserRepo) Sample(ctx context.Context, excludeID string, size int) ([]*users.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id <> $1 ORDER BY random() LIMIT $2`,
		excludeID, size)
	if err != nil {
		return nil, fmt.Errorf("failed to sample users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]*users.User, 0, size)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return result, nil
}

// AddFollow updates both arrays and inserts the optional notification in one transaction
func (r *postgresUserRepo) AddFollow(ctx context.Context, followerID, targetID string, n *notifications.Notification) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := followEdge(ctx, tx, followerID, targetID, arrayAdd)
		if err != nil || n == nil {
			return err
		}
		return insertNotification(ctx, tx, n)
	})
}

// RemoveFollow removes the edge from both arrays in one transaction
func (r *postgresUserRepo) RemoveFollow(ctx context.Context, followerID, targetID string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return followEdge(ctx, tx, followerID, targetID, arrayRemove)
	})
}

// followEdge applies op to both ends of a follow.
// Rows are locked in id order so opposite follows between two users cannot deadlock.
func followEdge(ctx context.Context, tx *sql.Tx, followerID, targetID string, op func(string) string) error {
	steps := []struct {
		id, column, member string
	}{
		{followerID, "following", targetID},
		{targetID, "followers", followerID},
	}
	if targetID < followerID {
		steps[0], steps[1] = steps[1], steps[0]
	}

	for _, st := range steps {
		_, err := updateArray(ctx, tx, "users", st.column, op(st.column), st.id, st.member)
		if errors.Is(err, sql.ErrNoRows) {
			return users.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", st.column, err)
		}
	}
	return nil
}

func (r *postgresUserRepo) getOne(ctx context.Context, query string, arg string) (*users.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func userArgs(u *users.User) []any {
	return []any{
		u.ID, u.Username, u.Email, u.PasswordHash, u.FullName, u.Bio, u.Link, u.ProfileImg, u.CoverImg,
		pq.Array([]string(u.Followers)), pq.Array([]string(u.Following)), pq.Array([]string(u.LikedPosts)),
		u.CreatedAt, u.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*users.User, error) {
	u := &users.User{}
	var followers, following, likedPosts pq.StringArray
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Bio, &u.Link, &u.ProfileImg, &u.CoverImg,
		&followers, &following, &likedPosts, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Followers = sets.IDSet(followers).Normalize()
	u.Following = sets.IDSet(following).Normalize()
	u.LikedPosts = sets.IDSet(likedPosts).Normalize()
	return u, nil
}

func mapUserWriteError(err error, msg string) error {
	if constraint, ok := uniqueViolation(err); ok {
		switch {
		case strings.Contains(constraint, "users_username_key"):
			return users.ErrUsernameTaken
		case strings.Contains(constraint, "users_email_key"):
			return users.ErrEmailTaken
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
