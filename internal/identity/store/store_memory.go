// Package store provides identity record persistence. The in-memory
// implementation backs tests and single-node runs; the postgres
// implementation is the production store.
package store

import (
	"context"
	"sync"

	"ledgergate/internal/identity/models"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
)

// InMemoryStore keeps identity records and the verified-user counter under
// one mutex so counter updates stay atomic with status writes.
type InMemoryStore struct {
	mu            sync.RWMutex
	records       map[domain.UserID]*models.Record
	verifiedCount int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.UserID]*models.Record)}
}

// Create inserts a new record. Returns sentinel.ErrConflict if the user
// already has one; registration is not idempotent.
func (s *InMemoryStore) Create(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.Owner]; exists {
		return sentinel.ErrConflict
	}
	copyRec := *rec
	s.records[rec.Owner] = &copyRec
	return nil
}

// Find returns a copy of the record for the user, or sentinel.ErrNotFound.
func (s *InMemoryStore) Find(_ context.Context, user domain.UserID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[user]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyRec := *rec
	return &copyRec, nil
}

// Update overwrites the record and applies the verified-user counter delta
// in the same critical section. The counter never goes below zero.
func (s *InMemoryStore) Update(_ context.Context, rec *models.Record, verifiedDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.Owner]; !ok {
		return sentinel.ErrNotFound
	}
	copyRec := *rec
	s.records[rec.Owner] = &copyRec
	s.verifiedCount += int64(verifiedDelta)
	if s.verifiedCount < 0 {
		s.verifiedCount = 0
	}
	return nil
}

// VerifiedUserCount returns the number of currently Verified records by
// stored status. Expiry is lazy, so lapsed records still count until their
// status changes.
func (s *InMemoryStore) VerifiedUserCount(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verifiedCount, nil
}

// Clear removes all records. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[domain.UserID]*models.Record)
	s.verifiedCount = 0
}
