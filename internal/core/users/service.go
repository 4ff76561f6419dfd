package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"Murmur/internal/core/assets"
	"Murmur/internal/core/notifications"
	"Murmur/internal/core/sets"
	"Murmur/internal/monitoring"
)

const (
	// MinPasswordLength applies to signup and password changes alike
	MinPasswordLength = 5

	// maxPasswordBytes is bcrypt's input limit
	maxPasswordBytes = 72

	suggestionSampleSize = 10
	maxSuggestions       = 4
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type userService struct {
	repo       Repository
	assets     assets.Host
	profiles   ProfileInvalidator
	logger     *slog.Logger
	bcryptCost int
}

// NewService creates a new user service.
// profiles may be nil when no profile cache is in use.
func NewService(repo Repository, assetHost assets.Host, profiles ProfileInvalidator, bcryptCost int, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userService{
		repo:       repo,
		assets:     assetHost,
		profiles:   profiles,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Signup validates the request in a fixed order and stores a new account
func (s *userService) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	if !emailRegex.MatchString(req.Email) {
		return nil, NewValidationError("email", "Invalid email format")
	}

	if err := s.ensureUsernameFree(ctx, req.Username, ""); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	if err := validatePassword("password", req.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		FullName:     req.FullName,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Followers:    sets.IDSet{},
		Following:    sets.IDSet{},
		LikedPosts:   sets.IDSet{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, mapUniqueError(err)
	}

	s.logger.Info("user signed up", "user", user.ID, "username", user.Username)
	return user, nil
}

// Login checks credentials; an unknown username and a wrong password fail the same way
func (s *userService) Login(ctx context.Context, req LoginRequest) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetByID retrieves a user by id
func (s *userService) GetByID(ctx context.Context, id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrUserNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// GetProfile retrieves a user by username
func (s *userService) GetProfile(ctx context.Context, username string) (*User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrUserNotFound
	}
	return s.repo.GetByUsername(ctx, username)
}

// UpdateProfile patches the caller's profile. Empty fields are left unchanged.
func (s *userService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if (req.CurrentPassword == "") != (req.NewPassword == "") {
		return nil, NewValidationError("password", "Please provide both current password and new password")
	}
	if req.CurrentPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			return nil, NewValidationError("currentPassword", "Current password incorrect")
		}
		if err := validatePassword("newPassword", req.NewPassword); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if req.Email != "" && req.Email != user.Email {
		if !emailRegex.MatchString(req.Email) {
			return nil, NewValidationError("email", "Invalid email format")
		}
		if err := s.ensureEmailFree(ctx, req.Email, user.ID); err != nil {
			return nil, err
		}
		user.Email = req.Email
	}

	if req.Username != "" && req.Username != user.Username {
		if err := s.ensureUsernameFree(ctx, req.Username, user.ID); err != nil {
			return nil, err
		}
		user.Username = req.Username
	}

	if req.ProfileImg != "" {
		url, err := s.replaceImage(ctx, user.ProfileImg, req.ProfileImg)
		if err != nil {
			return nil, err
		}
		user.ProfileImg = url
	}
	if req.CoverImg != "" {
		url, err := s.replaceImage(ctx, user.CoverImg, req.CoverImg)
		if err != nil {
			return nil, err
		}
		user.CoverImg = url
	}

	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if req.Link != "" {
		user.Link = req.Link
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, mapUniqueError(err)
	}
	s.invalidate(user.ID)

	s.logger.Info("profile updated", "user", user.ID)
	return user, nil
}

// ToggleFollow flips the follow edge between userID and targetID.
// Both sets are updated in place by the repository; the current state only picks the direction.
func (s *userService) ToggleFollow(ctx context.Context, userID, targetID string) (FollowAction, error) {
	if userID == targetID {
		return "", NewValidationError("id", "You can't follow/unfollow yourself")
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return "", err
	}
	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	if current.Following.Has(target.ID) {
		if err := s.repo.RemoveFollow(ctx, current.ID, target.ID); err != nil {
			return "", fmt.Errorf("failed to unfollow: %w", err)
		}
		s.invalidate(current.ID, target.ID)
		monitoring.FollowEvents.WithLabelValues(string(Unfollowed)).Inc()

		s.logger.Info("user unfollowed", "user", current.ID, "target", target.ID)
		return Unfollowed, nil
	}

	n := notifications.New(current.ID, target.ID, notifications.TypeFollow)
	if err := s.repo.AddFollow(ctx, current.ID, target.ID, n); err != nil {
		return "", fmt.Errorf("failed to follow: %w", err)
	}
	s.invalidate(current.ID, target.ID)
	monitoring.FollowEvents.WithLabelValues(string(Followed)).Inc()
	monitoring.NotificationsCreated.WithLabelValues(string(notifications.TypeFollow)).Inc()

	s.logger.Info("user followed", "user", current.ID, "target", target.ID, "notification", n.ID)
	return Followed, nil
}

// SuggestedUsers samples random users and drops the ones the caller already follows
func (s *userService) SuggestedUsers(ctx context.Context, userID string) ([]*User, error) {
	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sample, err := s.repo.Sample(ctx, userID, suggestionSampleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to sample users: %w", err)
	}

	suggested := make([]*User, 0, maxSuggestions)
	for _, u := range sample {
		if u.ID == current.ID || current.Following.Has(u.ID) {
			continue
		}
		suggested = append(suggested, u)
		if len(suggested) == maxSuggestions {
			break
		}
	}
	return suggested, nil
}

// replaceImage destroys the previous asset, if any, then uploads the new data URI
func (s *userService) replaceImage(ctx context.Context, oldURL, dataURI string) (string, error) {
	if oldURL != "" {
		if err := s.assets.Destroy(ctx, assets.PublicID(oldURL)); err != nil {
			return "", fmt.Errorf("failed to destroy previous image: %w", err)
		}
	}

	url, err := s.assets.Upload(ctx, dataURI)
	if err != nil {
		if errors.Is(err, assets.ErrInvalidImage) {
			return "", NewValidationError("image", "Invalid image")
		}
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return url, nil
}

func (s *userService) ensureUsernameFree(ctx context.Context, username, selfID string) error {
	existing, err := s.repo.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check username: %w", err)
	case existing.ID != selfID:
		return NewValidationError("username", "Username already exists")
	}
	return nil
}

func (s *userService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check email: %w", err)
	case existing.ID != selfID:
		return NewValidationError("email", "Email already exists")
	}
	return nil
}

func (s *userService) invalidate(ids ...string) {
	if s.profiles != nil {
		s.profiles.Invalidate(ids...)
	}
}

func validatePassword(field, password string) error {
	if len(password) < MinPasswordLength {
		return NewValidationError(field, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return NewValidationError(field, fmt.Sprintf("Password must be at most %d bytes long", maxPasswordBytes))
	}
	return nil
}

// mapUniqueError turns a unique-index race into the same message the pre-checks return
func mapUniqueError(err error) error {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return NewValidationError("username", "Username already exists")
	case errors.Is(err, ErrEmailTaken):
		return NewValidationError("email", "Email already exists")
	default:
		return fmt.Errorf("failed to save user: %w", err)
	}
}
