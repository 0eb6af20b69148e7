package attribute

import (
	"context"
	"slices"
	"strings"
	"sync"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps attributes in process memory. It backs unit tests and
// local development; the postgres store is the production implementation.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID id.AttributeID
	byID   map[id.AttributeID]*Attribute
	bySlug map[string]id.AttributeID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[id.AttributeID]*Attribute),
		bySlug: make(map[string]id.AttributeID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, attr *Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(attr.Slug)
	if _, exists := s.bySlug[key]; exists {
		return sentinel.ErrConflict
	}
	s.nextID++
	attr.ID = s.nextID
	clone := cloneAttribute(attr)
	s.byID[attr.ID] = clone
	s.bySlug[key] = attr.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, attrID id.AttributeID) (*Attribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attr, ok := s.byID[attrID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAttribute(attr), nil
}

func (s *InMemoryStore) FindBySlug(_ context.Context, slug string) (*Attribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attrID, ok := s.bySlug[strings.ToLower(slug)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAttribute(s.byID[attrID]), nil
}

func (s *InMemoryStore) List(_ context.Context, activeOnly bool) ([]*Attribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Attribute, 0, len(s.byID))
	for _, attr := range s.byID {
		if activeOnly && !attr.Active {
			continue
		}
		out = append(out, cloneAttribute(attr))
	}
	slices.SortFunc(out, func(a, b *Attribute) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, attr *Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[attr.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[attr.ID] = cloneAttribute(attr)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, attrID id.AttributeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attr, ok := s.byID[attrID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.bySlug, strings.ToLower(attr.Slug))
	delete(s.byID, attrID)
	return nil
}

func cloneAttribute(a *Attribute) *Attribute {
	clone := *a
	clone.Choices = slices.Clone(a.Choices)
	return &clone
}
