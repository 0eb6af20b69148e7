package evidencetype

import (
	"context"
	"slices"
	"strings"
	"sync"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type fieldLinkKey struct {
	typeID  id.EvidenceTypeID
	fieldID id.CustomFieldID
}

type qcLinkKey struct {
	typeID id.EvidenceTypeID
	qcID   id.QualityControlID
}

// InMemoryStore keeps evidence types and schema links in process memory.
type InMemoryStore struct {
	mu         sync.RWMutex
	nextID     id.EvidenceTypeID
	types      map[id.EvidenceTypeID]*EvidenceType
	fieldLinks map[fieldLinkKey]*TypeCustomField
	qcLinks    map[qcLinkKey]*TypeQualityControl
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		types:      make(map[id.EvidenceTypeID]*EvidenceType),
		fieldLinks: make(map[fieldLinkKey]*TypeCustomField),
		qcLinks:    make(map[qcLinkKey]*TypeQualityControl),
	}
}

func (s *InMemoryStore) Create(_ context.Context, t *EvidenceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.types {
		if strings.EqualFold(existing.Alias, t.Alias) {
			return sentinel.ErrConflict
		}
	}
	s.nextID++
	t.ID = s.nextID
	clone := cloneType(t)
	s.types[t.ID] = clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, typeID id.EvidenceTypeID) (*EvidenceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[typeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneType(t), nil
}

func (s *InMemoryStore) FindByAlias(_ context.Context, alias string) (*EvidenceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.types {
		if strings.EqualFold(t.Alias, alias) {
			return cloneType(t), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context, activeOnly bool) ([]*EvidenceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EvidenceType
	for _, t := range s.types {
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, cloneType(t))
	}
	slices.SortFunc(out, func(a, b *EvidenceType) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, t *EvidenceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[t.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.types[t.ID] = cloneType(t)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, typeID id.EvidenceTypeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[typeID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.types, typeID)
	for key := range s.fieldLinks {
		if key.typeID == typeID {
			delete(s.fieldLinks, key)
		}
	}
	for key := range s.qcLinks {
		if key.typeID == typeID {
			delete(s.qcLinks, key)
		}
	}
	return nil
}

func (s *InMemoryStore) CountChildren(_ context.Context, typeID id.EvidenceTypeID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, t := range s.types {
		if t.ParentID != nil && *t.ParentID == typeID {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) ListChildren(_ context.Context, typeID id.EvidenceTypeID) ([]*EvidenceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EvidenceType
	for _, t := range s.types {
		if t.ParentID != nil && *t.ParentID == typeID {
			out = append(out, cloneType(t))
		}
	}
	slices.SortFunc(out, func(a, b *EvidenceType) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *InMemoryStore) AttachCustomField(_ context.Context, link *TypeCustomField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fieldLinkKey{link.TypeID, link.CustomFieldID}
	if _, exists := s.fieldLinks[key]; exists {
		return sentinel.ErrConflict
	}
	clone := *link
	s.fieldLinks[key] = &clone
	return nil
}

func (s *InMemoryStore) DetachCustomField(_ context.Context, typeID id.EvidenceTypeID, fieldID id.CustomFieldID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fieldLinkKey{typeID, fieldID}
	if _, exists := s.fieldLinks[key]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.fieldLinks, key)
	return nil
}

func (s *InMemoryStore) ListCustomFields(_ context.Context, typeID id.EvidenceTypeID) ([]*TypeCustomField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*TypeCustomField
	for key, link := range s.fieldLinks {
		if key.typeID == typeID {
			clone := *link
			out = append(out, &clone)
		}
	}
	slices.SortFunc(out, func(a, b *TypeCustomField) int { return int(a.CustomFieldID - b.CustomFieldID) })
	return out, nil
}

func (s *InMemoryStore) CountCustomFieldRefs(_ context.Context, fieldID id.CustomFieldID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for key := range s.fieldLinks {
		if key.fieldID == fieldID {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) ListCustomFieldRefs(_ context.Context, fieldID id.CustomFieldID) ([]id.EvidenceTypeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []id.EvidenceTypeID
	for key := range s.fieldLinks {
		if key.fieldID == fieldID {
			out = append(out, key.typeID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *InMemoryStore) AttachQualityControl(_ context.Context, link *TypeQualityControl) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := qcLinkKey{link.TypeID, link.QualityControlID}
	if _, exists := s.qcLinks[key]; exists {
		return sentinel.ErrConflict
	}
	clone := *link
	s.qcLinks[key] = &clone
	return nil
}

func (s *InMemoryStore) DetachQualityControl(_ context.Context, typeID id.EvidenceTypeID, qcID id.QualityControlID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := qcLinkKey{typeID, qcID}
	if _, exists := s.qcLinks[key]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.qcLinks, key)
	return nil
}

func (s *InMemoryStore) ListQualityControls(_ context.Context, typeID id.EvidenceTypeID) ([]*TypeQualityControl, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*TypeQualityControl
	for key, link := range s.qcLinks {
		if key.typeID == typeID {
			clone := *link
			out = append(out, &clone)
		}
	}
	slices.SortFunc(out, func(a, b *TypeQualityControl) int { return int(a.QualityControlID - b.QualityControlID) })
	return out, nil
}

func cloneType(t *EvidenceType) *EvidenceType {
	clone := *t
	if t.ParentID != nil {
		parentID := *t.ParentID
		clone.ParentID = &parentID
	}
	return &clone
}
