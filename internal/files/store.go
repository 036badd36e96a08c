// Package files is the upload store: collision-resistant names inside one
// configured directory, with path traversal rejected at the boundary.
package files

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"relay-api/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Store struct {
	dir      string
	maxBytes int64
	log      *zap.SugaredLogger
}

func NewStore(dir string, maxBytes int64, log *zap.SugaredLogger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("upload directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: abs, maxBytes: maxBytes, log: log}, nil
}

// Save streams src into the store and returns the stored name. The stored
// name is a uuid plus the sanitized original extension, so uploads never
// collide and never carry directory components.
func (s *Store) Save(src io.Reader, originalName string) (string, *shared.RequestError) {
	name := uuid.NewString() + sanitizeExt(originalName)
	path := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		s.log.Errorw("Failed creating upload file", "error", err)
		return "", shared.ErrInternalServerError
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil {
			s.log.Warnw("Failed closing upload file", "error", closeErr)
		}
	}()

	written, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		s.log.Errorw("Failed writing upload", "error", err)
		_ = os.Remove(path)
		return "", shared.ErrInternalServerError
	}
	if written > s.maxBytes {
		_ = os.Remove(path)
		return "", shared.ErrUploadTooLarge
	}
	return name, nil
}

// Resolve maps a requested name onto a path inside the store, rejecting
// anything that would escape it. The returned path is only valid when the
// error is nil.
func (s *Store) Resolve(name string) (string, *shared.RequestError) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, "/\\") {
		return "", shared.ErrUnsafeFilename
	}
	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return "", shared.ErrUnsafeFilename
	}

	path := filepath.Clean(filepath.Join(s.dir, name))
	if path != filepath.Join(s.dir, name) || filepath.Dir(path) != s.dir {
		return "", shared.ErrUnsafeFilename
	}
	return path, nil
}

// Open returns a handle on a stored file.
func (s *Store) Open(name string) (*os.File, *shared.RequestError) {
	path, rerr := s.Resolve(name)
	if rerr != nil {
		return nil, rerr
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, shared.ErrFileNotFound
		}
		s.log.Errorw("Failed opening stored file", "error", err, "name", name)
		return nil, shared.ErrInternalServerError
	}
	return f, nil
}

func sanitizeExt(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if len(ext) > 10 {
		return ""
	}
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
