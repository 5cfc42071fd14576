package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/scribeapp/scribe-be/internal/auth"
	"github.com/scribeapp/scribe-be/internal/database"
	"github.com/scribeapp/scribe-be/internal/models"
	"github.com/scribeapp/scribe-be/internal/services"
	"github.com/scribeapp/scribe-be/internal/storage"
	"github.com/scribeapp/scribe-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router    *chi.Mux
	uploadDir string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	uploadDir := t.TempDir()
	uploads, err := storage.NewUploadStore(uploadDir)
	require.NoError(t, err)

	userService := services.NewUserService(db)
	eventService := services.NewEventService(db)
	postService := services.NewPostService(db, uploads, eventService)
	commentService := services.NewCommentService(db, postService, eventService)

	hub := websocket.NewHub()
	go hub.Run()

	router := NewRouter(RouterConfig{
		Auth:          auth.New("test-secret", userService),
		Users:         userService,
		Posts:         postService,
		Comments:      commentService,
		Events:        eventService,
		Hub:           hub,
		UploadDir:     uploadDir,
		AllowedOrigin: "*",
	})

	return &testAPI{router: router, uploadDir: uploadDir}
}

func (a *testAPI) doJSON(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) createPost(t *testing.T, token, title, content string, cover []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", title))
	require.NoError(t, w.WriteField("content", content))
	if cover != nil {
		fw, err := w.CreateFormFile("coverImage", "cover.png")
		require.NoError(t, err)
		_, err = fw.Write(cover)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(t *testing.T, username, password, displayName string) (string, models.User) {
	t.Helper()
	w := a.doJSON(t, "POST", "/api/register", "", map[string]string{
		"username": username, "password": password, "displayName": displayName,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User
}

func decodePosts(t *testing.T, w *httptest.ResponseRecorder) []models.Post {
	t.Helper()
	var posts []models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	return posts
}

func TestRegisterValidation(t *testing.T) {
	a := newTestAPI(t)

	w := a.doJSON(t, "POST", "/api/register", "", map[string]string{
		"username": "not-an-email", "password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	a.register(t, "a@x.com", "pw", "")

	w = a.doJSON(t, "POST", "/api/register", "", map[string]string{
		"username": "a@x.com", "password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")
}

func TestLogin(t *testing.T) {
	a := newTestAPI(t)
	a.register(t, "a@x.com", "pw", "Ann")

	w := a.doJSON(t, "POST", "/api/login", "", map[string]string{"username": "a@x.com", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Ann", resp.User.DisplayName)
	assert.NotContains(t, w.Body.String(), "passwordHash")

	w = a.doJSON(t, "POST", "/api/login", "", map[string]string{"username": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.doJSON(t, "POST", "/api/login", "", map[string]string{"username": "ghost@x.com", "password": "pw"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePostRequiresToken(t *testing.T) {
	a := newTestAPI(t)
	w := a.createPost(t, "", "T", "C", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEndToEndFlow(t *testing.T) {
	a := newTestAPI(t)

	token, _ := a.register(t, "a@x.com", "pw", "")

	// Login issues a working token too.
	w := a.doJSON(t, "POST", "/api/login", "", map[string]string{"username": "a@x.com", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)

	// Create a post; the author falls back to the username.
	w = a.createPost(t, token, "T", "C", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	assert.Equal(t, "a@x.com", post.Author)

	// The post shows up in the public listing.
	w = a.doJSON(t, "GET", "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	posts := decodePosts(t, w)
	require.Len(t, posts, 1)
	assert.Equal(t, "T", posts[0].Title)

	// Comment on it and read the comments back.
	w = a.doJSON(t, "POST", fmt.Sprintf("/api/posts/%s/comments", post.ID), token, map[string]string{"text": "hi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.doJSON(t, "GET", fmt.Sprintf("/api/posts/%s/comments", post.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var comments []models.Comment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "hi", comments[0].Text)
	assert.Equal(t, "a@x.com", comments[0].User.Username)

	// The activity feed recorded the actions.
	w = a.doJSON(t, "GET", "/api/activity", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []models.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	assert.GreaterOrEqual(t, len(events), 3) // register, post, comment
}

func TestPostOrderingNewestFirst(t *testing.T) {
	a := newTestAPI(t)
	token, _ := a.register(t, "a@x.com", "pw", "")

	w := a.createPost(t, token, "P1", "one", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = a.createPost(t, token, "P2", "two", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.doJSON(t, "GET", "/api/posts", "", nil)
	posts := decodePosts(t, w)
	require.Len(t, posts, 2)
	assert.Equal(t, "P2", posts[0].Title)
	assert.Equal(t, "P1", posts[1].Title)
}

func TestEditDeleteOwnership(t *testing.T) {
	a := newTestAPI(t)
	ownerToken, _ := a.register(t, "owner@x.com", "pw", "Owner")
	otherToken, _ := a.register(t, "other@x.com", "pw", "Other")

	w := a.createPost(t, ownerToken, "Mine", "content", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var post models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	// Non-owner may neither edit nor delete.
	w = a.doJSON(t, "PUT", "/api/posts/"+post.ID, otherToken, map[string]string{"title": "Stolen"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.doJSON(t, "DELETE", "/api/posts/"+post.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Owner edits; empty content keeps the old value.
	w = a.doJSON(t, "PUT", "/api/posts/"+post.ID, ownerToken, map[string]string{"title": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "content", updated.Content)

	// Owner deletes; the post and its comments are gone.
	w = a.doJSON(t, "DELETE", "/api/posts/"+post.ID, ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.doJSON(t, "GET", "/api/posts", "", nil)
	assert.Empty(t, decodePosts(t, w))

	w = a.doJSON(t, "GET", fmt.Sprintf("/api/posts/%s/comments", post.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Unknown ids are 404, not 403.
	w = a.doJSON(t, "PUT", "/api/posts/missing", ownerToken, map[string]string{"title": "X"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCoverImageUploadAndServing(t *testing.T) {
	a := newTestAPI(t)
	token, _ := a.register(t, "a@x.com", "pw", "")

	w := a.createPost(t, token, "With cover", "content", []byte("png-bytes"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	require.NotEmpty(t, post.CoverImage)
	assert.Contains(t, post.CoverImage, "/uploads/")

	// The image is served as a static file.
	req := httptest.NewRequest("GET", post.CoverImage, nil)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte("png-bytes"), rec.Body.Bytes())
}

func TestCreatePostValidation(t *testing.T) {
	a := newTestAPI(t)
	token, _ := a.register(t, "a@x.com", "pw", "")

	w := a.createPost(t, token, "", "content", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.doJSON(t, "POST", "/api/posts/some-id/comments", token, map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.doJSON(t, "POST", "/api/posts/missing/comments", token, map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
