package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/scribeapp/scribe-be/internal/models"
)

// CommentServiceProvider defines the interface for comment services.
type CommentServiceProvider interface {
	CreateComment(user models.User, postID, text string) (models.Comment, error)
	GetCommentsForPost(postID string) ([]models.Comment, error)
}

// CommentService provides business logic for comments.
type CommentService struct {
	db     *sql.DB
	posts  PostServiceProvider
	events EventServiceProvider
}

// NewCommentService creates a new CommentService.
func NewCommentService(db *sql.DB, posts PostServiceProvider, events EventServiceProvider) *CommentService {
	return &CommentService{db: db, posts: posts, events: events}
}

// CreateComment appends a comment by the given user to a post.
func (s *CommentService) CreateComment(user models.User, postID, text string) (models.Comment, error) {
	var exists int
	if err := s.db.QueryRow("SELECT COUNT(1) FROM posts WHERE id = ?", postID).Scan(&exists); err != nil {
		return models.Comment{}, err
	}
	if exists == 0 {
		return models.Comment{}, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}

	comment := models.Comment{
		ID:     uuid.New().String(),
		PostID: postID,
		Text:   text,
		User: models.CommentUser{
			Username:    user.Username,
			DisplayName: user.DisplayName,
		},
		CreatedAt: time.Now().UTC(),
	}

	stmt, err := s.db.Prepare("INSERT INTO comments(id, post_id, user_id, text, created_at) VALUES(?, ?, ?, ?, ?)")
	if err != nil {
		return models.Comment{}, err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(comment.ID, comment.PostID, user.ID, comment.Text, comment.CreatedAt); err != nil {
		return models.Comment{}, err
	}

	if err := s.events.CreateEvent("comment.create", "info", fmt.Sprintf("%s commented on a post", user.AuthorName()), &postID); err != nil {
		log.Warn().Err(err).Msg("Failed to record comment event")
	}
	return comment, nil
}

// GetCommentsForPost returns a post's comments in insertion order with their
// users resolved.
func (s *CommentService) GetCommentsForPost(postID string) ([]models.Comment, error) {
	post, err := s.posts.GetPost(postID)
	if err != nil {
		return nil, err
	}
	return post.Comments, nil
}
