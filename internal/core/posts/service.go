package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"Murmur/internal/core/assets"
	"Murmur/internal/core/notifications"
	"Murmur/internal/core/sets"
	"Murmur/internal/core/users"
	"Murmur/internal/monitoring"
)

type postService struct {
	repo     Repository
	userRepo users.Repository
	authors  AuthorResolver
	assets   assets.Host
	logger   *slog.Logger
}

// NewService creates a new post service
func NewService(repo Repository, userRepo users.Repository, authors AuthorResolver, assetHost assets.Host, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &postService{
		repo:     repo,
		userRepo: userRepo,
		authors:  authors,
		assets:   assetHost,
		logger:   logger,
	}
}

// CreatePost stores a post for userID, uploading the image first when present
func (s *postService) CreatePost(ctx context.Context, userID string, req CreatePostRequest) (*PostView, error) {
	author, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" && req.Img == "" {
		return nil, NewValidationError("text", "Post must have text or image")
	}

	var imgURL string
	if req.Img != "" {
		imgURL, err = s.assets.Upload(ctx, req.Img)
		if err != nil {
			if errors.Is(err, assets.ErrInvalidImage) {
				return nil, NewValidationError("img", "Invalid image")
			}
			return nil, fmt.Errorf("failed to upload post image: %w", err)
		}
	}

	now := time.Now().UTC()
	post := &Post{
		ID:        uuid.NewString(),
		UserID:    author.ID,
		Text:      req.Text,
		Img:       imgURL,
		Likes:     sets.IDSet{},
		Comments:  []Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.logger.Info("post created", "post", post.ID, "user", author.ID, "has_image", imgURL != "")

	views, err := s.populate(ctx, []*Post{post})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// DeletePost removes a post owned by userID; its image is destroyed before the document
func (s *postService) DeletePost(ctx context.Context, userID, postID string) error {
	post, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return err
	}

	if post.UserID != userID {
		s.logger.Warn("post delete rejected", "post", postID, "author", post.UserID, "caller", userID)
		return ErrNotAuthorized
	}

	if post.Img != "" {
		if err := s.assets.Destroy(ctx, assets.PublicID(post.Img)); err != nil {
			return fmt.Errorf("failed to destroy post image: %w", err)
		}
	}

	if err := s.repo.Delete(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.logger.Info("post deleted", "post", postID, "user", userID)
	return nil
}

// ToggleLike flips the like edge between userID and postID.
// The post's likes and the liker's likedPosts are updated in place by the repository.
func (s *postService) ToggleLike(ctx context.Context, userID, postID string) ([]string, error) {
	post, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	liker, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if post.Likes.Has(liker.ID) {
		likes, err := s.repo.RemoveLike(ctx, post.ID, liker.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to unlike post: %w", err)
		}
		s.authors.Invalidate(liker.ID)
		monitoring.LikeEvents.WithLabelValues(string(Unliked)).Inc()

		s.logger.Info("post unliked", "post", post.ID, "user", liker.ID)
		return likes, nil
	}

	n := notifications.New(liker.ID, post.UserID, notifications.TypeLike)
	likes, err := s.repo.AddLike(ctx, post.ID, liker.ID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to like post: %w", err)
	}
	s.authors.Invalidate(liker.ID)
	monitoring.LikeEvents.WithLabelValues(string(Liked)).Inc()
	monitoring.NotificationsCreated.WithLabelValues(string(notifications.TypeLike)).Inc()

	s.logger.Info("post liked", "post", post.ID, "user", liker.ID, "notification", n.ID)
	return likes, nil
}

// Comment appends a comment by userID and returns the populated post.
// A missing post is reported before empty text.
func (s *postService) Comment(ctx context.Context, userID, postID, text string) (*PostView, error) {
	if _, err := s.repo.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, NewValidationError("text", "Text field is required")
	}

	post, err := s.repo.AddComment(ctx, postID, Comment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}

	s.logger.Info("comment added", "post", post.ID, "user", userID)

	views, err := s.populate(ctx, []*Post{post})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// AllPosts returns every post, newest first
func (s *postService) AllPosts(ctx context.Context) ([]*PostView, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return s.populate(ctx, list)
}

// FollowingFeed returns posts by the users the caller follows
func (s *postService) FollowingFeed(ctx context.Context, userID string) ([]*PostView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListByAuthors(ctx, user.Following.Strings())
	if err != nil {
		return nil, fmt.Errorf("failed to list following feed: %w", err)
	}
	return s.populate(ctx, list)
}

// UserFeed returns posts written by username
func (s *postService) UserFeed(ctx context.Context, username string) ([]*PostView, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListByAuthors(ctx, []string{user.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list user feed: %w", err)
	}
	return s.populate(ctx, list)
}

// LikedFeed returns the posts a user has liked
func (s *postService) LikedFeed(ctx context.Context, userID string) ([]*PostView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListByIDs(ctx, user.LikedPosts.Strings())
	if err != nil {
		return nil, fmt.Errorf("failed to list liked posts: %w", err)
	}
	return s.populate(ctx, list)
}

// populate resolves post and comment authors in one batch
func (s *postService) populate(ctx context.Context, list []*Post) ([]*PostView, error) {
	views := make([]*PostView, 0, len(list))
	if len(list) == 0 {
		return views, nil
	}

	var ids []string
	for _, p := range list {
		ids = append(ids, p.UserID)
		for _, c := range p.Comments {
			ids = append(ids, c.UserID)
		}
	}

	profiles, err := s.authors.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve post authors: %w", err)
	}

	for _, p := range list {
		comments := make([]CommentView, 0, len(p.Comments))
		for _, c := range p.Comments {
			comments = append(comments, CommentView{
				ID:        c.ID,
				User:      profiles[c.UserID],
				Text:      c.Text,
				CreatedAt: c.CreatedAt,
			})
		}
		views = append(views, &PostView{
			ID:        p.ID,
			User:      profiles[p.UserID],
			Text:      p.Text,
			Img:       p.Img,
			Likes:     p.Likes.Strings(),
			Comments:  comments,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return views, nil
}
