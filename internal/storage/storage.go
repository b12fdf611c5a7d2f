package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/hoas/apiserver/config"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// AvatarStore keeps user avatars in object storage, one object per
// user record.
type AvatarStore struct {
	backend ObjectStorage
}

// NewAvatarStore constructs an AvatarStore over the given backend.
func NewAvatarStore(backend ObjectStorage) *AvatarStore {
	return &AvatarStore{backend: backend}
}

// FromConfig selects and constructs the configured storage backend.
// Returns nil when no backend is configured; avatar endpoints are
// disabled in that case.
func FromConfig(ctx context.Context, cfg config.StorageConfig) (*AvatarStore, error) {
	var backend ObjectStorage
	switch cfg.Backend {
	case "", config.StorageBackendNone:
		return nil, nil
	case config.StorageBackendMinio:
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case config.StorageBackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	store := NewAvatarStore(backend)
	if err := store.backend.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func avatarKey(userID string) string {
	return "avatars/" + userID
}

// Put uploads a user's avatar.
func (s *AvatarStore) Put(ctx context.Context, userID string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, avatarKey(userID), r, size, contentType)
}

// Get opens a reader for a user's avatar.
func (s *AvatarStore) Get(ctx context.Context, userID string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, avatarKey(userID))
}

// Delete removes a user's avatar.
func (s *AvatarStore) Delete(ctx context.Context, userID string) error {
	return s.backend.Delete(ctx, avatarKey(userID))
}
