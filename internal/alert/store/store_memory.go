// Package store provides alert record persistence.
package store

import (
	"context"
	"sort"
	"sync"

	"ledgergate/internal/alert/models"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.AlertID]*models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.AlertID]*models.Record)}
}

func (s *InMemoryStore) Create(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[rec.ID] = cloneRecord(rec)
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, id domain.AlertID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *InMemoryStore) Update(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.records[rec.ID] = cloneRecord(rec)
	return nil
}

// ListBySubject returns the user's alerts, oldest first.
func (s *InMemoryStore) ListBySubject(_ context.Context, subject domain.UserID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, rec := range s.records {
		if rec.Subject == subject {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneRecord(rec *models.Record) *models.Record {
	copyRec := *rec
	copyRec.EvidenceRefs = append([]string(nil), rec.EvidenceRefs...)
	copyRec.Annotations = append([]models.Annotation(nil), rec.Annotations...)
	if rec.ActionTaken != nil {
		action := *rec.ActionTaken
		copyRec.ActionTaken = &action
	}
	return &copyRec
}
