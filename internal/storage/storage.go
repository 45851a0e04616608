// Package storage archives generated reports in object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charismamove/apiserver/config"
)

const (
	BackendNone  = "none"
	BackendMinio = "minio"
	BackendGCS   = "gcs"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Location is the backend URI of key.
	Location(key string) string
}

// Open builds the backend selected by cfg.Backend. The "none" backend
// returns a nil ObjectStorage and no error.
func Open(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendNone, "":
		return nil, nil
	case BackendMinio:
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return ensure(ctx, client)
	case BackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return ensure(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

func ensure(ctx context.Context, store ObjectStorage) (ObjectStorage, error) {
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return store, nil
}

// PutBytes uploads data under key and returns its location.
func PutBytes(ctx context.Context, store ObjectStorage, key string, data []byte, contentType string) (string, error) {
	if err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	return store.Location(key), nil
}
