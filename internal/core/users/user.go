package users

import (
	"time"

	"Murmur/internal/core/sets"
)

// User is the stored account document.
// PasswordHash never leaves the service layer; handlers render PublicUser instead.
type User struct {
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
	ID           string     `json:"_id" bson:"_id" db:"id"`
	Username     string     `json:"username" bson:"username" db:"username"`
	Email        string     `json:"email" bson:"email" db:"email"`
	PasswordHash string     `json:"-" bson:"password" db:"password_hash"`
	FullName     string     `json:"fullName" bson:"fullName" db:"full_name"`
	Bio          string     `json:"bio" bson:"bio" db:"bio"`
	Link         string     `json:"link" bson:"link" db:"link"`
	ProfileImg   string     `json:"profileImg" bson:"profileImg" db:"profile_img"`
	CoverImg     string     `json:"coverImg" bson:"coverImg" db:"cover_img"`
	Followers    sets.IDSet `json:"followers" bson:"followers" db:"followers"`
	Following    sets.IDSet `json:"following" bson:"following" db:"following"`
	LikedPosts   sets.IDSet `json:"likedPosts" bson:"likedPosts" db:"liked_posts"`
}

// PublicUser is the client-facing projection of a user, without the password hash
type PublicUser struct {
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	ID         string    `json:"_id"`
	FullName   string    `json:"fullName"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Bio        string    `json:"bio"`
	Link       string    `json:"link"`
	ProfileImg string    `json:"profileImg"`
	CoverImg   string    `json:"coverImg"`
	Followers  []string  `json:"followers"`
	Following  []string  `json:"following"`
	LikedPosts []string  `json:"likedPosts"`
}

// Public returns the client-facing projection of u
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:         u.ID,
		FullName:   u.FullName,
		Username:   u.Username,
		Email:      u.Email,
		Bio:        u.Bio,
		Link:       u.Link,
		ProfileImg: u.ProfileImg,
		CoverImg:   u.CoverImg,
		Followers:  u.Followers.Strings(),
		Following:  u.Following.Strings(),
		LikedPosts: u.LikedPosts.Strings(),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// Normalize replaces nil id sets with empty ones so every backend stores lists
func (u *User) Normalize() {
	u.Followers = u.Followers.Normalize()
	u.Following = u.Following.Normalize()
	u.LikedPosts = u.LikedPosts.Normalize()
}

// SignupRequest represents the input for creating an account
type SignupRequest struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents username/password credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfileRequest patches the caller's profile.
// Empty strings leave the stored value unchanged; an image is a data URI.
type UpdateProfileRequest struct {
	FullName        string `json:"fullName" validate:"max=100"`
	Email           string `json:"email"`
	Username        string `json:"username" validate:"max=50"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	Bio             string `json:"bio" validate:"max=500"`
	Link            string `json:"link" validate:"max=500"`
	ProfileImg      string `json:"profileImg"`
	CoverImg        string `json:"coverImg"`
}

// FollowAction is the outcome of a follow toggle
type FollowAction string

const (
	Followed   FollowAction = "followed"
	Unfollowed FollowAction = "unfollowed"
)
