package blobstore

import (
	"context"
	"sync"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
)

// InMemoryStore is a BlobStore fake backed by a map guarded by a mutex.
type InMemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{objects: make(map[string][]byte)}
}

func (s *InMemoryStore) PutText(_ context.Context, key, content, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = []byte(content)
	return nil
}

func (s *InMemoryStore) PutBinary(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = cp
	return nil
}

func (s *InMemoryStore) GetText(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return "", apperrors.NewNotFoundError("object " + key)
	}
	return string(data), nil
}

// GetBinary is a test-only accessor (not part of BlobStore) letting
// integration tests assert on PDF/image bytes written via PutBinary.
func (s *InMemoryStore) GetBinary(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

var _ BlobStore = (*InMemoryStore)(nil)
