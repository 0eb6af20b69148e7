package evidence

import (
	"context"
	"slices"
	"sync"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps evidences and workflow records in process memory.
type InMemoryStore struct {
	mu sync.RWMutex

	nextEvidenceID  id.EvidenceID
	nextAuthID      id.AuthID
	nextSignatureID id.SignatureID
	nextFindingID   id.FindingID
	nextCommentID   id.CommentID
	nextFileID      id.FileID

	evidences  map[id.EvidenceID]*Evidence
	auths      map[id.AuthID]*EvidenceAuth
	signatures map[id.SignatureID]*EvidenceSignature
	findings   map[id.FindingID]*EvidenceFinding
	comments   map[id.CommentID]*EvidenceComment
	files      map[id.FileID]*UploadedFile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		evidences:  make(map[id.EvidenceID]*Evidence),
		auths:      make(map[id.AuthID]*EvidenceAuth),
		signatures: make(map[id.SignatureID]*EvidenceSignature),
		findings:   make(map[id.FindingID]*EvidenceFinding),
		comments:   make(map[id.CommentID]*EvidenceComment),
		files:      make(map[id.FileID]*UploadedFile),
	}
}

func (s *InMemoryStore) Create(_ context.Context, e *Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEvidenceID++
	e.ID = s.nextEvidenceID
	s.evidences[e.ID] = cloneEvidence(e)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, evidenceID id.EvidenceID) (*Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.evidences[evidenceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEvidence(e), nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]*Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Evidence
	for _, e := range s.evidences {
		if e.ParentID != nil {
			continue
		}
		if filter.StatusID != nil && e.StatusID != *filter.StatusID {
			continue
		}
		out = append(out, cloneEvidence(e))
	}
	slices.SortFunc(out, func(a, b *Evidence) int { return int(b.ID - a.ID) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, e *Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.evidences[e.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.evidences[e.ID] = cloneEvidence(e)
	return nil
}

func (s *InMemoryStore) CreateAuth(_ context.Context, a *EvidenceAuth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.auths {
		if existing.EvidenceID == a.EvidenceID && existing.UserID == a.UserID && existing.Version == a.Version {
			return sentinel.ErrConflict
		}
	}
	s.nextAuthID++
	a.ID = s.nextAuthID
	clone := *a
	s.auths[a.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindAuth(_ context.Context, authID id.AuthID) (*EvidenceAuth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.auths[authID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (s *InMemoryStore) ListAuths(_ context.Context, evidenceID id.EvidenceID) ([]*EvidenceAuth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EvidenceAuth
	for _, a := range s.auths {
		if a.EvidenceID == evidenceID {
			clone := *a
			out = append(out, &clone)
		}
	}
	slices.SortFunc(out, func(a, b *EvidenceAuth) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *InMemoryStore) UpdateAuth(_ context.Context, a *EvidenceAuth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auths[a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *a
	s.auths[a.ID] = &clone
	return nil
}

func (s *InMemoryStore) CreateSignature(_ context.Context, sig *EvidenceSignature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.signatures {
		if existing.EvidenceID == sig.EvidenceID && existing.UserID == sig.UserID && existing.Version == sig.Version {
			return sentinel.ErrConflict
		}
	}
	s.nextSignatureID++
	sig.ID = s.nextSignatureID
	clone := *sig
	s.signatures[sig.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindSignature(_ context.Context, sigID id.SignatureID) (*EvidenceSignature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signatures[sigID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *sig
	return &clone, nil
}

func (s *InMemoryStore) ListSignatures(_ context.Context, evidenceID id.EvidenceID) ([]*EvidenceSignature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EvidenceSignature
	for _, sig := range s.signatures {
		if sig.EvidenceID == evidenceID {
			clone := *sig
			out = append(out, &clone)
		}
	}
	slices.SortFunc(out, func(a, b *EvidenceSignature) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *InMemoryStore) UpdateSignature(_ context.Context, sig *EvidenceSignature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.signatures[sig.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *sig
	s.signatures[sig.ID] = &clone
	return nil
}

func (s *InMemoryStore) CreateFinding(_ context.Context, f *EvidenceFinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.findings {
		if existing.EvidenceID == f.EvidenceID && existing.QualityControlID == f.QualityControlID && existing.Version == f.Version {
			return sentinel.ErrConflict
		}
	}
	s.nextFindingID++
	f.ID = s.nextFindingID
	clone := *f
	s.findings[f.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindFinding(_ context.Context, findingID id.FindingID) (*EvidenceFinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.findings[findingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *f
	return &clone, nil
}

func (s *InMemoryStore) ListFindings(_ context.Context, evidenceID id.EvidenceID) ([]*EvidenceFinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EvidenceFinding
	for _, f := range s.findings {
		if f.EvidenceID == evidenceID {
			clone := *f
			out = append(out, &clone)
		}
	}
	slices.SortFunc(out, func(a, b *EvidenceFinding) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *InMemoryStore) UpdateFinding(_ context.Context, f *EvidenceFinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findings[f.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *f
	s.findings[f.ID] = &clone
	return nil
}

func (s *InMemoryStore) CreateComment(_ context.Context, c *EvidenceComment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCommentID++
	c.ID = s.nextCommentID
	clone := *c
	s.comments[c.ID] = &clone
	return nil
}

func (s *InMemoryStore) ListComments(_ context.Context, evidenceID id.EvidenceID) ([]*EvidenceComment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EvidenceComment
	for _, c := range s.comments {
		if c.EvidenceID == evidenceID {
			clone := *c
			out = append(out, &clone)
		}
	}
	slices.SortFunc(out, func(a, b *EvidenceComment) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *InMemoryStore) CreateFile(_ context.Context, f *UploadedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextFileID++
	f.ID = s.nextFileID
	clone := *f
	s.files[f.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindFile(_ context.Context, fileID id.FileID) (*UploadedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[fileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *f
	return &clone, nil
}

func cloneEvidence(e *Evidence) *Evidence {
	clone := *e
	if e.ParentID != nil {
		parentID := *e.ParentID
		clone.ParentID = &parentID
	}
	if e.UploadedFileID != nil {
		fileID := *e.UploadedFileID
		clone.UploadedFileID = &fileID
	}
	return &clone
}
