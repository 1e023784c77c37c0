// Package blob stores exported files in an object store.
package blob

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("blob not found")

// Info describes a stored object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	URL          string    `json:"url,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// Store is the subset of S3 semantics exports need. Put overwrites.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (Info, error)
	Get(ctx context.Context, key string) ([]byte, Info, error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}
