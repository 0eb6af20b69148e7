package audit

import (
	"context"
	"sync"
	"time"
)

// InMemoryOutbox keeps outbox entries in process memory.
type InMemoryOutbox struct {
	mu      sync.RWMutex
	entries []*OutboxEntry
}

func NewInMemoryOutbox() *InMemoryOutbox {
	return &InMemoryOutbox{}
}

func (s *InMemoryOutbox) Append(_ context.Context, entry *OutboxEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *entry
	s.entries = append(s.entries, &clone)
	return nil
}

func (s *InMemoryOutbox) ListUnpublished(_ context.Context, limit int) ([]*OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*OutboxEntry
	for _, e := range s.entries {
		if e.PublishedAt != nil {
			continue
		}
		clone := *e
		out = append(out, &clone)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryOutbox) MarkPublished(_ context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]struct{}, len(ids))
	for _, entryID := range ids {
		set[entryID] = struct{}{}
	}
	for _, e := range s.entries {
		if _, ok := set[e.ID]; ok && e.PublishedAt == nil {
			published := at
			e.PublishedAt = &published
		}
	}
	return nil
}
