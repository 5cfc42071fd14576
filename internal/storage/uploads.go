package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// URLPrefix is the path prefix cover images are served under.
const URLPrefix = "/uploads/"

const stagedPrefix = "staged-"

// UploadStore keeps uploaded cover images on local disk. Uploads are written
// to a temporary file first and only renamed into place once the owning
// database write has succeeded, so a failed post creation leaves no orphan.
type UploadStore struct {
	basePath string
}

// NewUploadStore creates the base directory if needed.
func NewUploadStore(basePath string) (*UploadStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &UploadStore{basePath: basePath}, nil
}

// StagedUpload is an upload that has been written to disk but not yet
// committed. Its final name is fixed at staging time so callers can record
// the served path before deciding to Commit or Discard. Exactly one of the
// two must be called.
type StagedUpload struct {
	store    *UploadStore
	tempPath string
	name     string
}

// Stage writes the multipart file to a temporary file in the store.
func (s *UploadStore) Stage(fh *multipart.FileHeader) (*StagedUpload, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.basePath, stagedPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}

	return &StagedUpload{
		store:    s,
		tempPath: tmp.Name(),
		name:     uuid.New().String() + strings.ToLower(filepath.Ext(fh.Filename)),
	}, nil
}

// ServedPath returns the path the upload will be served under once committed.
func (u *StagedUpload) ServedPath() string {
	return URLPrefix + u.name
}

// Commit renames the staged file to its final unique name.
func (u *StagedUpload) Commit() error {
	if err := os.Rename(u.tempPath, filepath.Join(u.store.basePath, u.name)); err != nil {
		return fmt.Errorf("failed to commit upload: %w", err)
	}
	return nil
}

// Discard removes the staged file.
func (u *StagedUpload) Discard() {
	if err := os.Remove(u.tempPath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", u.tempPath).Msg("Failed to discard staged upload")
	}
}

// Remove deletes a committed upload given its served path. Unknown or already
// deleted files are not an error.
func (s *UploadStore) Remove(servedPath string) {
	name := path.Base(servedPath)
	if name == "." || name == "/" {
		return
	}
	if err := os.Remove(filepath.Join(s.basePath, name)); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", servedPath).Msg("Failed to remove upload")
	}
}

// Sweep deletes stale staged files and committed files referenced by no post.
// Only files older than maxAge are touched so an upload staged or committed
// mid-request is never reaped. Returns the number of files removed.
func (s *UploadStore) Sweep(referenced map[string]bool, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		stale := strings.HasPrefix(entry.Name(), stagedPrefix) || !referenced[URLPrefix+entry.Name()]
		if !stale {
			continue
		}
		if err := os.Remove(filepath.Join(s.basePath, entry.Name())); err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Sweep failed to remove file")
			continue
		}
		removed++
	}
	return removed, nil
}
