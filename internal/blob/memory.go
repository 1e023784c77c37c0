package blob

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	info Info
	data []byte
}

// Memory keeps objects in process memory. Its URLs are only meaningful inside
// the process.
type Memory struct {
	mu   sync.RWMutex
	objs map[string]memoryEntry
}

func NewMemory() *Memory {
	return &Memory{objs: make(map[string]memoryEntry)}
}

func (m *Memory) Put(_ context.Context, key string, data []byte, contentType string) (Info, error) {
	if key == "" {
		return Info{}, fmt.Errorf("put blob: empty key")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	info := Info{
		Key:          key,
		Size:         int64(len(buf)),
		ContentType:  contentType,
		URL:          "memory://" + key,
		LastModified: time.Now().UTC(),
	}
	m.mu.Lock()
	m.objs[key] = memoryEntry{info: info, data: buf}
	m.mu.Unlock()
	return info, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, Info, error) {
	m.mu.RLock()
	entry, ok := m.objs[key]
	m.mu.RUnlock()
	if !ok {
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	buf := make([]byte, len(entry.data))
	copy(buf, entry.data)
	return buf, entry.info, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objs, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) URL(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	_, ok := m.objs[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return "memory://" + key, nil
}
