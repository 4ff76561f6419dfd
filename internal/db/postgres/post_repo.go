package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"Murmur/internal/core/notifications"
	"Murmur/internal/core/posts"
	"Murmur/internal/core/sets"
	"Murmur/internal/core/users"
)

const postColumns = `id, user_id, text, img, likes, comments, created_at, updated_at`

// newest first, ties broken by id so pages are stable
const postOrder = ` ORDER BY created_at DESC, id DESC`

type postgresPostRepo struct {
	db *sql.DB
}

// NewPostRepository creates a new PostgreSQL post repository
func NewPostRepository(db *sql.DB) posts.Repository {
	return &postgresPostRepo{db: db}
}

// Create inserts a new post into the posts table
func (r *postgresPostRepo) Create(ctx context.Context, post *posts.Post) error {
	args, err := postArgs(post)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// GetByID retrieves a post by id
func (r *postgresPostRepo) GetByID(ctx context.Context, id string) (*posts.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

// AddComment appends c to the JSONB comment array in a single statement
func (r *postgresPostRepo) AddComment(ctx context.Context, postID string, c posts.Comment) (*posts.Post, error) {
	commentJSON, err := json.Marshal([]posts.Comment{c})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal comment: %w", err)
	}

	query := `
		UPDATE posts SET comments = comments || $2::jsonb, updated_at = $3
		WHERE id = $1
		RETURNING ` + postColumns

	p, err := scanPost(r.db.QueryRowContext(ctx, query, postID, commentJSON, c.CreatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to append comment: %w", err)
	}
	return p, nil
}

// Delete removes a post by id
func (r *postgresPostRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rowsAffected == 0 {
		return posts.ErrNotFound
	}
	return nil
}

func (r *postgresPostRepo) List(ctx context.Context) ([]*posts.Post, error) {
	return r.query(ctx, `SELECT `+postColumns+` FROM posts`+postOrder)
}

func (r *postgresPostRepo) ListByAuthors(ctx context.Context, authorIDs []string) ([]*posts.Post, error) {
	if len(authorIDs) == 0 {
		return []*posts.Post{}, nil
	}
	return r.query(ctx, `SELECT `+postColumns+` FROM posts WHERE user_id = ANY($1)`+postOrder, pq.Array(authorIDs))
}

func (r *postgresPostRepo) ListByIDs(ctx context.Context, ids []string) ([]*posts.Post, error) {
	if len(ids) == 0 {
		return []*posts.Post{}, nil
	}
	return r.query(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ANY($1)`+postOrder, pq.Array(ids))
}

// AddLike updates the post's likes, the liker's liked_posts and inserts the
// optional notification in one transaction
func (r *postgresPostRepo) AddLike(ctx context.Context, postID, userID string, n *notifications.Notification) ([]string, error) {
	var likes []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		if likes, err = likeEdge(ctx, tx, postID, userID, arrayAdd); err != nil || n == nil {
			return err
		}
		return insertNotification(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}
	return likes, nil
}

// RemoveLike removes the like from both arrays in one transaction
func (r *postgresPostRepo) RemoveLike(ctx context.Context, postID, userID string) ([]string, error) {
	var likes []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		likes, err = likeEdge(ctx, tx, postID, userID, arrayRemove)
		return err
	})
	if err != nil {
		return nil, err
	}
	return likes, nil
}

// likeEdge applies op to the post's likes, then to the user's liked_posts
func likeEdge(ctx context.Context, tx *sql.Tx, postID, userID string, op func(string) string) ([]string, error) {
	likes, err := updateArray(ctx, tx, "posts", "likes", op("likes"), postID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update likes: %w", err)
	}

	_, err = updateArray(ctx, tx, "users", "liked_posts", op("liked_posts"), userID, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update liked posts: %w", err)
	}
	return likes, nil
}

func (r *postgresPostRepo) query(ctx context.Context, query string, args ...any) ([]*posts.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]*posts.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return result, nil
}

func postArgs(p *posts.Post) ([]any, error) {
	p.Normalize()
	commentsJSON, err := json.Marshal(p.Comments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal comments: %w", err)
	}
	return []any{
		p.ID, p.UserID, p.Text, p.Img, pq.Array([]string(p.Likes)), commentsJSON, p.CreatedAt, p.UpdatedAt,
	}, nil
}

func scanPost(row rowScanner) (*posts.Post, error) {
	p := &posts.Post{}
	var likes pq.StringArray
	var commentsJSON []byte
	if err := row.Scan(&p.ID, &p.UserID, &p.Text, &p.Img, &likes, &commentsJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Likes = sets.IDSet(likes).Normalize()
	if len(commentsJSON) > 0 {
		if err := json.Unmarshal(commentsJSON, &p.Comments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal comments: %w", err)
		}
	}
	p.Normalize()
	return p, nil
}
