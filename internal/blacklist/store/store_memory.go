// Package store provides blacklist entry persistence.
package store

import (
	"context"
	"sync"

	"ledgergate/internal/blacklist/models"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.UserID]*models.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[domain.UserID]*models.Entry)}
}

// Upsert inserts or replaces the user's entry.
func (s *InMemoryStore) Upsert(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyEntry := cloneEntry(entry)
	s.entries[entry.User] = copyEntry
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, user domain.UserID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[user]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEntry(entry), nil
}

func (s *InMemoryStore) Delete(_ context.Context, user domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[user]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.entries, user)
	return nil
}

// Clear removes all entries. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[domain.UserID]*models.Entry)
}

func cloneEntry(entry *models.Entry) *models.Entry {
	copyEntry := *entry
	if entry.ExpiresAt != nil {
		t := *entry.ExpiresAt
		copyEntry.ExpiresAt = &t
	}
	if entry.RelatedAlertID != nil {
		id := *entry.RelatedAlertID
		copyEntry.RelatedAlertID = &id
	}
	return &copyEntry
}
