package services

import (
	"database/sql"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/scribeapp/scribe-be/internal/models"
	"github.com/scribeapp/scribe-be/internal/storage"
)

// PostServiceProvider defines the interface for post services.
type PostServiceProvider interface {
	CreatePost(user models.User, title, content string, cover *multipart.FileHeader) (models.Post, error)
	GetPosts() ([]models.Post, error)
	GetPost(id string) (models.Post, error)
	UpdatePost(user models.User, id, title, content string) (models.Post, error)
	DeletePost(user models.User, id string) error
	CoverImagePaths() (map[string]bool, error)
}

// PostService provides business logic for post management.
type PostService struct {
	db      *sql.DB
	uploads *storage.UploadStore
	events  EventServiceProvider
}

// NewPostService creates a new PostService.
func NewPostService(db *sql.DB, uploads *storage.UploadStore, events EventServiceProvider) *PostService {
	return &PostService{db: db, uploads: uploads, events: events}
}

// CreatePost stores a new post authored by the given user. The cover image,
// if any, is staged first and committed only after the insert succeeds so a
// failed write leaves no file behind.
func (s *PostService) CreatePost(user models.User, title, content string, cover *multipart.FileHeader) (models.Post, error) {
	post := models.Post{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   content,
		Author:    user.AuthorName(),
		CreatedAt: time.Now().UTC(),
		Comments:  []models.Comment{},
	}

	var staged *storage.StagedUpload
	if cover != nil {
		var err error
		staged, err = s.uploads.Stage(cover)
		if err != nil {
			return models.Post{}, fmt.Errorf("failed to store cover image: %w", err)
		}
		post.CoverImage = staged.ServedPath()
	}

	stmt, err := s.db.Prepare("INSERT INTO posts(id, title, content, author, cover_image, created_at) VALUES(?, ?, ?, ?, ?, ?)")
	if err != nil {
		if staged != nil {
			staged.Discard()
		}
		return models.Post{}, err
	}
	defer stmt.Close()

	if _, err = stmt.Exec(post.ID, post.Title, post.Content, post.Author, nullable(post.CoverImage), post.CreatedAt); err != nil {
		if staged != nil {
			staged.Discard()
		}
		return models.Post{}, err
	}

	// The image becomes visible only after the row exists; a failed insert
	// discards the staged file instead of leaking it.
	if staged != nil {
		if err := staged.Commit(); err != nil {
			return models.Post{}, err
		}
	}

	s.recordEvent("post.create", fmt.Sprintf("%s published '%s'", post.Author, post.Title), post.ID)
	return post, nil
}

// GetPosts returns all posts, newest first, with their comments resolved.
func (s *PostService) GetPosts() ([]models.Post, error) {
	rows, err := s.db.Query("SELECT id, title, content, author, cover_image, created_at FROM posts ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.Post{}
	index := map[string]int{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		index[post.ID] = len(posts)
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	comments, err := s.loadComments("")
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		if i, ok := index[c.PostID]; ok {
			posts[i].Comments = append(posts[i].Comments, c)
		}
	}
	return posts, nil
}

// GetPost retrieves a single post by ID with its comments resolved.
func (s *PostService) GetPost(id string) (models.Post, error) {
	row := s.db.QueryRow("SELECT id, title, content, author, cover_image, created_at FROM posts WHERE id = ?", id)
	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Post{}, fmt.Errorf("post %s: %w", id, ErrNotFound)
		}
		return models.Post{}, err
	}

	comments, err := s.loadComments(id)
	if err != nil {
		return models.Post{}, err
	}
	post.Comments = comments
	return post, nil
}

// UpdatePost replaces a post's title and content. Empty fields keep their
// current value. Only the post's author may update it.
func (s *PostService) UpdatePost(user models.User, id, title, content string) (models.Post, error) {
	post, err := s.GetPost(id)
	if err != nil {
		return models.Post{}, err
	}
	if !ownedBy(post, user) {
		return models.Post{}, ErrForbidden
	}

	if title != "" {
		post.Title = title
	}
	if content != "" {
		post.Content = content
	}

	if _, err := s.db.Exec("UPDATE posts SET title = ?, content = ? WHERE id = ?", post.Title, post.Content, id); err != nil {
		return models.Post{}, err
	}

	s.recordEvent("post.update", fmt.Sprintf("%s updated '%s'", post.Author, post.Title), post.ID)
	return post, nil
}

// DeletePost removes a post, its comments and its cover image. Only the
// post's author may delete it.
func (s *PostService) DeletePost(user models.User, id string) error {
	post, err := s.GetPost(id)
	if err != nil {
		return err
	}
	if !ownedBy(post, user) {
		return ErrForbidden
	}

	// Comments cascade with the post row.
	if _, err := s.db.Exec("DELETE FROM posts WHERE id = ?", id); err != nil {
		return err
	}
	if post.CoverImage != "" {
		s.uploads.Remove(post.CoverImage)
	}

	s.recordEvent("post.delete", fmt.Sprintf("%s deleted '%s'", post.Author, post.Title), post.ID)
	return nil
}

// CoverImagePaths returns the served paths of every cover image still
// referenced by a post. Used by the upload sweeper.
func (s *PostService) CoverImagePaths() (map[string]bool, error) {
	rows, err := s.db.Query("SELECT cover_image FROM posts WHERE cover_image IS NOT NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := map[string]bool{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths[p] = true
	}
	return paths, rows.Err()
}

// ownedBy implements the ownership rule: the caller's display name (falling
// back to username) must equal the stored author string. Two accounts with
// the same display name therefore own each other's posts.
func ownedBy(post models.Post, user models.User) bool {
	return post.Author == user.AuthorName()
}

func (s *PostService) recordEvent(eventType, message, postID string) {
	if err := s.events.CreateEvent(eventType, "info", message, &postID); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("Failed to record event")
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (models.Post, error) {
	var post models.Post
	var cover sql.NullString
	if err := row.Scan(&post.ID, &post.Title, &post.Content, &post.Author, &cover, &post.CreatedAt); err != nil {
		return models.Post{}, err
	}
	post.CoverImage = cover.String
	post.Comments = []models.Comment{}
	return post, nil
}

// loadComments returns comments with their users resolved, in insertion
// order. An empty postID loads comments for all posts.
func (s *PostService) loadComments(postID string) ([]models.Comment, error) {
	query := `SELECT c.id, c.post_id, c.text, c.created_at, u.username, u.display_name
		FROM comments c JOIN users u ON u.id = c.user_id`
	args := []any{}
	if postID != "" {
		query += " WHERE c.post_id = ?"
		args = append(args, postID)
	}
	query += " ORDER BY c.created_at ASC, c.rowid ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		var displayName sql.NullString
		if err := rows.Scan(&c.ID, &c.PostID, &c.Text, &c.CreatedAt, &c.User.Username, &displayName); err != nil {
			return nil, err
		}
		c.User.DisplayName = displayName.String
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
