package customfield

import (
	"context"
	"slices"
	"sync"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps custom fields in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID id.CustomFieldID
	fields map[id.CustomFieldID]*CustomField
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{fields: make(map[id.CustomFieldID]*CustomField)}
}

func (s *InMemoryStore) Create(_ context.Context, f *CustomField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	f.ID = s.nextID
	clone := cloneField(f)
	s.fields[f.ID] = clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, fieldID id.CustomFieldID) (*CustomField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fields[fieldID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneField(f), nil
}

func (s *InMemoryStore) List(_ context.Context, activeOnly bool) ([]*CustomField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*CustomField
	for _, f := range s.fields {
		if activeOnly && !f.Active {
			continue
		}
		out = append(out, cloneField(f))
	}
	slices.SortFunc(out, func(a, b *CustomField) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, f *CustomField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fields[f.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.fields[f.ID] = cloneField(f)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, fieldID id.CustomFieldID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fields[fieldID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.fields, fieldID)
	return nil
}

func cloneField(f *CustomField) *CustomField {
	clone := *f
	clone.Attribute = nil // resolved by the service, not stored
	return &clone
}
