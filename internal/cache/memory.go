package cache

import (
	"context"
	"sync"

	"github.com/codeargus/pkg/models"
)

// MemoryStore is an in-process Store used in tests and anywhere a
// throwaway cache is acceptable
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*models.AnalysisResult
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*models.AnalysisResult)}
}

// Get looks up a key
func (s *MemoryStore) Get(ctx context.Context, key Key) (*models.AnalysisResult, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.entries[key.String()]
	return result, ok, nil
}

// Put stores a result, last write wins
func (s *MemoryStore) Put(ctx context.Context, key Key, result *models.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key.String()] = result
	return nil
}

// Len reports the number of stored entries
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
