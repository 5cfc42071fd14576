package services

import (
	"bytes"
	"database/sql"
	"mime/multipart"
	"path/filepath"
	"testing"

	"github.com/scribeapp/scribe-be/internal/database"
	"github.com/scribeapp/scribe-be/internal/models"
	"github.com/scribeapp/scribe-be/internal/storage"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

// testStores wires the full service stack over a throwaway database and
// upload directory.
type testStores struct {
	db        *sql.DB
	uploadDir string
	uploads   *storage.UploadStore
	users     *UserService
	events    *EventService
	posts     *PostService
	comments  *CommentService
}

func newTestStores(t *testing.T) *testStores {
	t.Helper()
	db := newTestDB(t)
	uploadDir := t.TempDir()
	uploads, err := storage.NewUploadStore(uploadDir)
	require.NoError(t, err)

	users := NewUserService(db)
	events := NewEventService(db)
	posts := NewPostService(db, uploads, events)
	comments := NewCommentService(db, posts, events)

	return &testStores{
		db:        db,
		uploadDir: uploadDir,
		uploads:   uploads,
		users:     users,
		events:    events,
		posts:     posts,
		comments:  comments,
	}
}

func (ts *testStores) mustCreateUser(t *testing.T, username, password, displayName string) models.User {
	t.Helper()
	user, err := ts.users.CreateUser(username, password, displayName)
	require.NoError(t, err)
	return user
}

// fileHeader builds a *multipart.FileHeader the way an HTTP upload would.
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("coverImage", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["coverImage"][0]
}
