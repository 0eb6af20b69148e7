package eav

import (
	"context"
	"slices"
	"sync"

	id "custodia/pkg/domain"
)

type valueKey struct {
	evidence  id.EvidenceID
	attribute id.AttributeID
}

// InMemoryStore keeps dynamic values in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[valueKey]*Value
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{values: make(map[valueKey]*Value)}
}

func (s *InMemoryStore) Upsert(_ context.Context, v *Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *v
	s.values[valueKey{v.EvidenceID, v.AttributeID}] = &clone
	return nil
}

func (s *InMemoryStore) ListByEvidence(_ context.Context, evidenceID id.EvidenceID) ([]*Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Value
	for key, v := range s.values {
		if key.evidence == evidenceID {
			clone := *v
			out = append(out, &clone)
		}
	}
	slices.SortFunc(out, func(a, b *Value) int { return int(a.AttributeID - b.AttributeID) })
	return out, nil
}

func (s *InMemoryStore) DeleteByEvidence(_ context.Context, evidenceID id.EvidenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.values {
		if key.evidence == evidenceID {
			delete(s.values, key)
		}
	}
	return nil
}

func (s *InMemoryStore) DeleteByAttribute(_ context.Context, attrID id.AttributeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.values {
		if key.attribute == attrID {
			delete(s.values, key)
		}
	}
	return nil
}
