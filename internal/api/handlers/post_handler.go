package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/scribeapp/scribe-be/internal/auth"
	"github.com/scribeapp/scribe-be/internal/services"
	ws "github.com/scribeapp/scribe-be/internal/websocket"
)

const maxUploadMemory = 10 << 20 // 10 MiB held in memory before spilling to disk

// PostHandler handles HTTP requests for posts.
type PostHandler struct {
	service services.PostServiceProvider
	hub     *ws.Hub
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(service services.PostServiceProvider, hub *ws.Hub) *PostHandler {
	return &PostHandler{service: service, hub: hub}
}

// GetAll returns all posts, newest first.
func (h *PostHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.GetPosts()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch posts")
		writeError(w, http.StatusInternalServerError, "Error fetching posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// Create handles post creation: multipart form with title, content and an
// optional coverImage file.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	title := r.FormValue("title")
	content := r.FormValue("content")
	if title == "" || content == "" {
		writeError(w, http.StatusBadRequest, "Title and content are required")
		return
	}

	var cover *multipart.FileHeader
	if file, header, err := r.FormFile("coverImage"); err == nil {
		file.Close()
		cover = header
	} else if err != http.ErrMissingFile {
		writeError(w, http.StatusBadRequest, "Invalid cover image")
		return
	}

	post, err := h.service.CreatePost(user, title, content, cover)
	if err != nil {
		log.Error().Err(err).Str("author", user.AuthorName()).Msg("Failed to create post")
		writeError(w, http.StatusInternalServerError, "Error creating post")
		return
	}

	h.hub.Broadcast <- ws.NewPostMessage(post)
	writeJSON(w, http.StatusCreated, post)
}

// UpdatePayload defines the structure for post edit requests. Empty fields
// keep the post's current values.
type UpdatePayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Update handles editing a post's title and content.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	var payload UpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	post, err := h.service.UpdatePost(user, id, payload.Title, payload.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			writeError(w, http.StatusNotFound, "Post not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "You can only edit your own posts")
		default:
			log.Error().Err(err).Str("post_id", id).Msg("Failed to update post")
			writeError(w, http.StatusInternalServerError, "Error updating post")
		}
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// Delete handles the permanent deletion of a post and its comments.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.DeletePost(user, id); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			writeError(w, http.StatusNotFound, "Post not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "You can only delete your own posts")
		default:
			log.Error().Err(err).Str("post_id", id).Msg("Failed to delete post")
			writeError(w, http.StatusInternalServerError, "Error deleting post")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully"})
}
