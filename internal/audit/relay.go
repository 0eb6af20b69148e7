package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"custodia/internal/platform/metrics"
)

const (
	defaultRelayInterval = 2 * time.Second
	defaultRelayBatch    = 100
)

// Relay drains the outbox into a Kafka topic. Entries stay unpublished
// until the produce is acknowledged, so a crash between produce and mark
// can at worst duplicate events, never lose them.
type Relay struct {
	store    OutboxStore
	client   *kgo.Client
	topic    string
	interval time.Duration
	batch    int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewRelay(brokers []string, topic string, store OutboxStore, m *metrics.Metrics, logger *slog.Logger) (*Relay, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Relay{
		store:    store,
		client:   client,
		topic:    topic,
		interval: defaultRelayInterval,
		batch:    defaultRelayBatch,
		metrics:  m,
		logger:   logger,
	}, nil
}

// EnsureTopic creates the audit topic if the cluster does not have it yet.
func (r *Relay) EnsureTopic(ctx context.Context) error {
	admin := kadm.NewClient(r.client)
	_, err := admin.CreateTopic(ctx, 1, 1, nil, r.topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic %q: %w", r.topic, err)
	}
	return nil
}

// Run drains the outbox until the context is canceled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.flush(ctx); err != nil {
				r.logger.ErrorContext(ctx, "audit relay flush failed", "error", err)
			}
		}
	}
}

func (r *Relay) flush(ctx context.Context) error {
	entries, err := r.store.ListUnpublished(ctx, r.batch)
	if err != nil {
		return fmt.Errorf("list outbox entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	records := make([]*kgo.Record, len(entries))
	ids := make([]string, len(entries))
	for i, e := range entries {
		records[i] = &kgo.Record{Key: []byte(e.ID), Value: e.Payload}
		ids[i] = e.ID
	}
	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit events: %w", err)
	}
	if err := r.store.MarkPublished(ctx, ids, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark entries published: %w", err)
	}
	r.metrics.AddAuditEventsRelayed(len(entries))
	r.logger.DebugContext(ctx, "audit events relayed", "count", len(entries))
	return nil
}

// Close flushes buffered produces and releases the Kafka client.
func (r *Relay) Close() {
	r.client.Close()
}
