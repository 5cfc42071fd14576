package models

import "time"

// Post represents a blog post. Author is the denormalized display name (or
// username) of the user who created it; ownership checks compare against that
// string, so two accounts sharing a display name can mutate each other's posts.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Author     string    `json:"author"`
	CoverImage string    `json:"coverImage,omitempty"` // Served path, e.g. /uploads/<name>
	CreatedAt  time.Time `json:"createdAt"`
	Comments   []Comment `json:"comments"`
}

// Comment is stored in its own table but rendered as part of its parent post,
// in insertion order. Comments are never edited or deleted on their own; they
// live and die with the post.
type Comment struct {
	ID        string      `json:"id"`
	PostID    string      `json:"-"`
	Text      string      `json:"text"`
	User      CommentUser `json:"user"`
	CreatedAt time.Time   `json:"createdAt"`
}

// CommentUser is the slice of the commenting user embedded in comment responses.
type CommentUser struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
}
