// Package feed stores the latest reserve attestation. Only the newest one
// matters for gating; history lives in the audit trail.
package feed

import (
	"context"
	"sync"

	"ledgergate/internal/reserve/models"
	"ledgergate/internal/sentinel"
)

// Feed holds the current attestation.
type Feed interface {
	Publish(ctx context.Context, att *models.Attestation) error
	// Latest returns the current attestation or sentinel.ErrNotFound when
	// none has been published.
	Latest(ctx context.Context) (*models.Attestation, error)
}

// InMemoryFeed backs tests and single-node runs.
type InMemoryFeed struct {
	mu      sync.RWMutex
	current *models.Attestation
}

func NewInMemoryFeed() *InMemoryFeed {
	return &InMemoryFeed{}
}

func (f *InMemoryFeed) Publish(_ context.Context, att *models.Attestation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copyAtt := *att
	f.current = &copyAtt
	return nil
}

func (f *InMemoryFeed) Latest(_ context.Context) (*models.Attestation, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current == nil {
		return nil, sentinel.ErrNotFound
	}
	copyAtt := *f.current
	return &copyAtt, nil
}
