package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"ledgergate/internal/platform/kafka/producer"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily. An optional
// Kafka sink mirrors every event to the compliance topic for downstream
// reporting.
type Publisher struct {
	store      Store
	events     chan Event
	wg         sync.WaitGroup
	logger     *slog.Logger
	async      bool
	kafka      *producer.Producer
	kafkaTopic string
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Events are queued and persisted in a background goroutine. Seize/enforcement
// paths must NOT use an async publisher; they need fail-closed semantics.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithKafkaSink mirrors events to the given Kafka topic, best-effort.
func WithKafkaSink(kp *producer.Producer, topic string) PublisherOption {
	return func(p *Publisher) {
		p.kafka = kp
		p.kafkaTopic = topic
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

// processEvents runs in a goroutine and persists events from the channel.
func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.persist(context.Background(), event); err != nil {
			if p.logger != nil {
				p.logger.Error("failed to persist audit event",
					"error", err,
					"action", event.Action,
					"subject", event.Subject,
				)
			}
		}
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	if p.async {
		// Non-blocking send; drop event if buffer is full to avoid blocking hot path
		select {
		case p.events <- base:
			return nil
		default:
			if p.logger != nil {
				p.logger.Warn("audit buffer full, event dropped",
					"action", base.Action,
					"subject", base.Subject,
				)
			}
			return nil
		}
	}
	return p.persist(ctx, base)
}

// EmitSync persists the event before returning, bypassing any async buffer.
// Seizure and other fail-closed paths use this: if the record cannot be
// written the caller must treat the action as unrecorded and fail it.
func (p *Publisher) EmitSync(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	return p.persist(ctx, base)
}

func (p *Publisher) persist(ctx context.Context, event Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.kafka != nil {
		payload, err := json.Marshal(event)
		if err == nil {
			err = p.kafka.Produce(ctx, &producer.Message{
				Topic: p.kafkaTopic,
				Key:   []byte(event.Subject),
				Value: payload,
			})
		}
		if err != nil && p.logger != nil {
			p.logger.Warn("failed to mirror audit event to kafka",
				"error", err,
				"action", event.Action,
			)
		}
	}
	return nil
}

func (p *Publisher) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	return p.store.ListBySubject(ctx, subject)
}
