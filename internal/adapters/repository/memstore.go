package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/forecastbench/internal/domain/model"
)

// MemoryStore is a mutex-guarded in-memory Store.
type MemoryStore struct {
	mu              sync.RWMutex
	records         map[model.PairKey]model.MetricRecord
	initialCapacity int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	s.records = make(map[model.PairKey]model.MetricRecord, s.initialCapacity)
	return s
}

// Put stores rec under key and reports whether a record was replaced.
func (s *MemoryStore) Put(_ context.Context, key model.PairKey, rec model.MetricRecord) (bool, error) {
	if key.Vendor == "" || key.Dataset == "" {
		return false, fmt.Errorf("%w: %q", ErrInvalidKey, key.String())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, replaced := s.records[key]
	s.records[key] = rec
	return replaced, nil
}

// Get returns the record for key.
func (s *MemoryStore) Get(_ context.Context, key model.PairKey) (model.MetricRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return model.MetricRecord{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return rec, nil
}

// Delete removes key.
func (s *MemoryStore) Delete(_ context.Context, key model.PairKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[key]
	delete(s.records, key)
	return ok
}

// All returns a copy of every record.
func (s *MemoryStore) All(_ context.Context) map[model.PairKey]model.MetricRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.PairKey]model.MetricRecord, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

// Count returns the number of records.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
