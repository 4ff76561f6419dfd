package posts

import (
	"time"

	"Murmur/internal/core/sets"
	"Murmur/internal/core/users"
)

// Comment is embedded in its post, in insertion order
type Comment struct {
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	ID        string    `json:"_id" bson:"_id"`
	UserID    string    `json:"user" bson:"user"`
	Text      string    `json:"text" bson:"text"`
}

// Post is the stored post document.
// At least one of Text and Img is non-empty.
type Post struct {
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
	ID        string     `json:"_id" bson:"_id" db:"id"`
	UserID    string     `json:"user" bson:"user" db:"user_id"`
	Text      string     `json:"text" bson:"text" db:"text"`
	Img       string     `json:"img" bson:"img" db:"img"`
	Likes     sets.IDSet `json:"likes" bson:"likes" db:"likes"`
	Comments  []Comment  `json:"comments" bson:"comments" db:"comments"`
}

// Normalize replaces nil collections with empty ones so every backend stores lists
func (p *Post) Normalize() {
	p.Likes = p.Likes.Normalize()
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}

// CommentView is a comment with its author resolved
type CommentView struct {
	CreatedAt time.Time         `json:"createdAt"`
	User      *users.PublicUser `json:"user"`
	ID        string            `json:"_id"`
	Text      string            `json:"text"`
}

// PostView is a post with its author and comment authors resolved, as returned to clients
type PostView struct {
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	User      *users.PublicUser `json:"user"`
	ID        string            `json:"_id"`
	Text      string            `json:"text,omitempty"`
	Img       string            `json:"img,omitempty"`
	Likes     []string          `json:"likes"`
	Comments  []CommentView     `json:"comments"`
}

// CreatePostRequest represents the input for creating a post; Img is a data URI
type CreatePostRequest struct {
	Text string `json:"text" validate:"max=2000"`
	Img  string `json:"img"`
}

// LikeAction is the outcome of a like toggle
type LikeAction string

const (
	Liked   LikeAction = "liked"
	Unliked LikeAction = "unliked"
)
