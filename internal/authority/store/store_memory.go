// Package store provides authority registry persistence.
package store

import (
	"context"
	"sync"

	"ledgergate/internal/authority/models"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.PrincipalID]*models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.PrincipalID]*models.Record)}
}

func (s *InMemoryStore) Create(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.Principal]; exists {
		return sentinel.ErrConflict
	}
	copyRec := *rec
	s.records[rec.Principal] = &copyRec
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, principal domain.PrincipalID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[principal]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyRec := *rec
	return &copyRec, nil
}

func (s *InMemoryStore) Update(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.Principal]; !ok {
		return sentinel.ErrNotFound
	}
	copyRec := *rec
	s.records[rec.Principal] = &copyRec
	return nil
}

// Clear removes all records. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[domain.PrincipalID]*models.Record)
}
