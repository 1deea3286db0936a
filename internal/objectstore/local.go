// Package objectstore provides reference ObjectStore implementations: a
// local filesystem store for development/testing and an S3-backed store
// for production, grounded on buildbeaver-buildbeaver's
// backend/server/services/blob/{local_store,s3_store}.go field shapes and
// method naming (renamed to this repo's Put/Get/Presign/PublicURL
// vocabulary).
package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LocalStore persists blobs under a root directory on the local
// filesystem. It never really "presigns" — it returns a file:// URL with
// the requested key, since there is no server to mint a signed URL for.
type LocalStore struct {
	root      string
	publicBase string
}

// NewLocalStore creates a LocalStore rooted at root. publicBase, if
// non-empty, is prefixed to keys when building PublicURL (e.g. a CDN
// domain serving the same tree); otherwise a file:// URL is returned.
func NewLocalStore(root, publicBase string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create object store root %s: %w", root, err)
	}
	return &LocalStore{root: root, publicBase: publicBase}, nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *LocalStore) Put(_ context.Context, key string, content []byte, _ string) (string, error) {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("mkdir for %s: %w", key, err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", key, err)
	}
	return "storage://local/" + key, nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	content, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return content, nil
}

func (s *LocalStore) Presign(_ context.Context, key string, _ time.Duration) (string, error) {
	return "file://" + s.path(key), nil
}

func (s *LocalStore) PublicURL(key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	return "file://" + s.path(key)
}

// HeadExists reports whether key is already present, for the s3_upload
// handler's collision-suffix logic.
func (s *LocalStore) HeadExists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat blob %s: %w", key, err)
}
