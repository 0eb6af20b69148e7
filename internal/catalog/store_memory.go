package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type entryKey struct {
	kind    Kind
	entryID id.CatalogID
}

// InMemoryStore keeps catalog entries in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  id.CatalogID
	entries map[entryKey]*Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[entryKey]*Entry)}
}

func (s *InMemoryStore) Create(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.Kind == e.Kind && strings.EqualFold(existing.Name, e.Name) {
			return sentinel.ErrConflict
		}
	}
	s.nextID++
	e.ID = s.nextID
	s.entries[entryKey{e.Kind, e.ID}] = cloneEntry(e)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, kind Kind, entryID id.CatalogID) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryKey{kind, entryID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEntry(e), nil
}

func (s *InMemoryStore) List(_ context.Context, kind Kind, filter ListFilter) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Entry
	for key, e := range s.entries {
		if key.kind != kind {
			continue
		}
		if filter.ActiveOnly && !e.Active {
			continue
		}
		if filter.NameFilter != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(filter.NameFilter)) {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	slices.SortFunc(out, func(a, b *Entry) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entryKey{e.Kind, e.ID}
	if _, ok := s.entries[key]; !ok {
		return sentinel.ErrNotFound
	}
	s.entries[key] = cloneEntry(e)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, kind Kind, entryID id.CatalogID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entryKey{kind, entryID}
	if _, ok := s.entries[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.entries, key)
	return nil
}

func (s *InMemoryStore) CountChildren(_ context.Context, kind Kind, entryID id.CatalogID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for key, e := range s.entries {
		if key.kind == kind && e.ParentID != nil && *e.ParentID == entryID {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) ListChildren(_ context.Context, kind Kind, entryID id.CatalogID) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Entry
	for key, e := range s.entries {
		if key.kind == kind && e.ParentID != nil && *e.ParentID == entryID {
			out = append(out, cloneEntry(e))
		}
	}
	slices.SortFunc(out, func(a, b *Entry) int { return int(a.ID - b.ID) })
	return out, nil
}

func cloneEntry(e *Entry) *Entry {
	clone := *e
	if e.ParentID != nil {
		parentID := *e.ParentID
		clone.ParentID = &parentID
	}
	return &clone
}
