package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/scribeapp/scribe-be/internal/auth"
	"github.com/scribeapp/scribe-be/internal/services"
	ws "github.com/scribeapp/scribe-be/internal/websocket"
)

// CommentHandler handles HTTP requests for a post's comments.
type CommentHandler struct {
	service services.CommentServiceProvider
	hub     *ws.Hub
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(service services.CommentServiceProvider, hub *ws.Hub) *CommentHandler {
	return &CommentHandler{service: service, hub: hub}
}

// CommentPayload is the expected JSON body for appending a comment.
type CommentPayload struct {
	Text string `json:"text"`
}

// GetAllForPost returns a post's comments in insertion order.
func (h *CommentHandler) GetAllForPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	comments, err := h.service.GetCommentsForPost(postID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}
		log.Error().Err(err).Str("post_id", postID).Msg("Failed to fetch comments")
		writeError(w, http.StatusInternalServerError, "Error fetching comments")
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// Create appends a comment by the authenticated user to a post.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	postID := chi.URLParam(r, "id")
	var payload CommentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Text == "" {
		writeError(w, http.StatusBadRequest, "Comment text is required")
		return
	}

	comment, err := h.service.CreateComment(user, postID, payload.Text)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}
		log.Error().Err(err).Str("post_id", postID).Msg("Failed to create comment")
		writeError(w, http.StatusInternalServerError, "Server error while posting comment")
		return
	}

	h.hub.BroadcastTo(postID, ws.NewCommentMessage(postID, comment))
	writeJSON(w, http.StatusCreated, comment)
}
