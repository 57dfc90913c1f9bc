package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	platformredis "ledgergate/internal/platform/redis"
	"ledgergate/internal/reserve/models"
	"ledgergate/internal/sentinel"
)

const attestationKey = "ledgergate:reserve:attestation"

// RedisFeed shares the latest attestation across engine instances. The
// value carries no TTL; staleness is judged against AsOf at read time.
type RedisFeed struct {
	client *platformredis.Client
}

func NewRedisFeed(client *platformredis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

func (f *RedisFeed) Publish(ctx context.Context, att *models.Attestation) error {
	payload, err := json.Marshal(att)
	if err != nil {
		return fmt.Errorf("encoding reserve attestation: %w", err)
	}
	if err := f.client.Set(ctx, attestationKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("publishing reserve attestation: %w", err)
	}
	return nil
}

func (f *RedisFeed) Latest(ctx context.Context) (*models.Attestation, error) {
	payload, err := f.client.Get(ctx, attestationKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading reserve attestation: %w", err)
	}
	var att models.Attestation
	if err := json.Unmarshal(payload, &att); err != nil {
		return nil, fmt.Errorf("decoding reserve attestation: %w", err)
	}
	return &att, nil
}
