package models

import "time"

// Event represents a loggable action in the system's activity feed.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "post.create", "comment.create"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	PostID    *string   `json:"postId,omitempty"` // Nullable for events not tied to a post
	CreatedAt time.Time `json:"createdAt"`
}
