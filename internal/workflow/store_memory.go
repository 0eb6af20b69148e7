package workflow

import (
	"context"
	"slices"
	"strings"
	"sync"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps the workflow catalogs in process memory.
type InMemoryStore struct {
	mu sync.RWMutex

	nextGroupID  id.EvidenceGroupID
	nextStageID  id.EvidenceStageID
	nextStatusID id.EvidenceStatusID
	nextQCID     id.QualityControlID

	groups   map[id.EvidenceGroupID]*EvidenceGroup
	stages   map[id.EvidenceStageID]*EvidenceStage
	statuses map[id.EvidenceStatusID]*EvidenceStatus
	qcs      map[id.QualityControlID]*QualityControl
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		groups:   make(map[id.EvidenceGroupID]*EvidenceGroup),
		stages:   make(map[id.EvidenceStageID]*EvidenceStage),
		statuses: make(map[id.EvidenceStatusID]*EvidenceStatus),
		qcs:      make(map[id.QualityControlID]*QualityControl),
	}
}

func (s *InMemoryStore) CreateGroup(_ context.Context, g *EvidenceGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.groups {
		if strings.EqualFold(existing.Alias, g.Alias) {
			return sentinel.ErrConflict
		}
	}
	s.nextGroupID++
	g.ID = s.nextGroupID
	clone := *g
	s.groups[g.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindGroup(_ context.Context, groupID id.EvidenceGroupID) (*EvidenceGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *g
	return &clone, nil
}

func (s *InMemoryStore) ListGroups(_ context.Context, activeOnly bool) ([]*EvidenceGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EvidenceGroup
	for _, g := range s.groups {
		if activeOnly && !g.Active {
			continue
		}
		clone := *g
		out = append(out, &clone)
	}
	slices.SortFunc(out, func(a, b *EvidenceGroup) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *InMemoryStore) UpdateGroup(_ context.Context, g *EvidenceGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[g.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *g
	s.groups[g.ID] = &clone
	return nil
}

func (s *InMemoryStore) CreateStage(_ context.Context, st *EvidenceStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStageID++
	st.ID = s.nextStageID
	clone := *st
	s.stages[st.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindStage(_ context.Context, stageID id.EvidenceStageID) (*EvidenceStage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stages[stageID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *st
	return &clone, nil
}

func (s *InMemoryStore) ListStages(_ context.Context, activeOnly bool) ([]*EvidenceStage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EvidenceStage
	for _, st := range s.stages {
		if activeOnly && !st.Active {
			continue
		}
		clone := *st
		out = append(out, &clone)
	}
	slices.SortFunc(out, func(a, b *EvidenceStage) int {
		if a.Position != b.Position {
			return a.Position - b.Position
		}
		return int(a.ID - b.ID)
	})
	return out, nil
}

func (s *InMemoryStore) UpdateStage(_ context.Context, st *EvidenceStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stages[st.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *st
	s.stages[st.ID] = &clone
	return nil
}

func (s *InMemoryStore) CreateStatus(_ context.Context, st *EvidenceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.statuses {
		if existing.StageID == st.StageID && existing.GroupID == st.GroupID &&
			strings.EqualFold(existing.Name, st.Name) {
			return sentinel.ErrConflict
		}
	}
	s.nextStatusID++
	st.ID = s.nextStatusID
	clone := *st
	s.statuses[st.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindStatus(_ context.Context, statusID id.EvidenceStatusID) (*EvidenceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[statusID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *st
	return &clone, nil
}

func (s *InMemoryStore) ListStatuses(_ context.Context, groupID id.EvidenceGroupID) ([]*EvidenceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EvidenceStatus
	for _, st := range s.statuses {
		if !groupID.IsNil() && st.GroupID != groupID {
			continue
		}
		clone := *st
		out = append(out, &clone)
	}
	slices.SortFunc(out, func(a, b *EvidenceStatus) int {
		if a.Position != b.Position {
			return a.Position - b.Position
		}
		return int(a.ID - b.ID)
	})
	return out, nil
}

func (s *InMemoryStore) CreateQualityControl(_ context.Context, qc *QualityControl) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQCID++
	qc.ID = s.nextQCID
	clone := *qc
	s.qcs[qc.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindQualityControl(_ context.Context, qcID id.QualityControlID) (*QualityControl, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qc, ok := s.qcs[qcID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *qc
	return &clone, nil
}

func (s *InMemoryStore) ListQualityControls(_ context.Context, activeOnly bool) ([]*QualityControl, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*QualityControl
	for _, qc := range s.qcs {
		if activeOnly && !qc.Active {
			continue
		}
		clone := *qc
		out = append(out, &clone)
	}
	slices.SortFunc(out, func(a, b *QualityControl) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *InMemoryStore) UpdateQualityControl(_ context.Context, qc *QualityControl) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.qcs[qc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *qc
	s.qcs[qc.ID] = &clone
	return nil
}
