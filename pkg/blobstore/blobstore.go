// Package blobstore stores binary objects such as the practice logo.
package blobstore

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrBlobNotFound = errors.New("blob not found")

// Object is a stored blob with its metadata.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
	UpdatedAt   time.Time
}

type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps blobs in process memory. Used in tests and when no
// bucket is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*Object)}
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &Object{
		Key:         key,
		ContentType: contentType,
		Data:        buf,
		UpdatedAt:   time.Now(),
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	cp := *obj
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; !ok {
		return ErrBlobNotFound
	}
	delete(m.objects, key)
	return nil
}
