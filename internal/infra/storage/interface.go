package storage

import (
	"context"
	"io"
)

// ObjectStorage holds staged copy archives.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Download returns domain.ErrNotFound for a missing key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
