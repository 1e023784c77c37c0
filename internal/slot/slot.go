// Package slot provides durable local storage for open sheets. Each sheet owns
// one slot, keyed by its storage key, holding the latest serialized record.
package slot

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("slot not found")

// Entry is the stored value of a slot.
type Entry struct {
	Value     []byte    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is implemented by RedisStore and SQLiteStore.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
