package storage

import (
	"context"
	"io"
)

// ObjectStore defines the object operations used for complaint attachments.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Bucket() string
}
