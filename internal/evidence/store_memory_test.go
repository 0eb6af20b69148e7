package evidence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func (s *InMemoryStoreSuite) newEvidence(parentID *id.EvidenceID) *Evidence {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	e := &Evidence{
		StatusID: 1, TypeID: 1, OwnerID: 1, ParentID: parentID,
		Version: 1, CreatedAt: now, UpdatedAt: now,
	}
	s.Require().NoError(s.store.Create(context.Background(), e))
	return e
}

func (s *InMemoryStoreSuite) TestList() {
	ctx := context.Background()

	first := s.newEvidence(nil)
	s.newEvidence(&first.ID)
	second := s.newEvidence(nil)

	s.Run("excludes children and orders newest first", func() {
		evidences, err := s.store.List(ctx, ListFilter{})
		s.NoError(err)
		s.Require().Len(evidences, 2)
		s.Equal(second.ID, evidences[0].ID)
		s.Equal(first.ID, evidences[1].ID)
	})

	s.Run("status filter", func() {
		status := id.EvidenceStatusID(1)
		evidences, err := s.store.List(ctx, ListFilter{StatusID: &status})
		s.NoError(err)
		s.Len(evidences, 2)

		other := id.EvidenceStatusID(2)
		evidences, err = s.store.List(ctx, ListFilter{StatusID: &other})
		s.NoError(err)
		s.Empty(evidences)
	})
}

func (s *InMemoryStoreSuite) TestWorkflowRecordUniqueness() {
	ctx := context.Background()
	e := s.newEvidence(nil)
	now := time.Now()

	s.Run("auth triple is unique", func() {
		a := &EvidenceAuth{EvidenceID: e.ID, UserID: 7, Status: ReviewPending, Version: 1, CreatedAt: now, UpdatedAt: now}
		s.Require().NoError(s.store.CreateAuth(ctx, a))

		dup := &EvidenceAuth{EvidenceID: e.ID, UserID: 7, Status: ReviewPending, Version: 1, CreatedAt: now, UpdatedAt: now}
		s.ErrorIs(s.store.CreateAuth(ctx, dup), sentinel.ErrConflict)

		// Same user at another version is a new record.
		next := &EvidenceAuth{EvidenceID: e.ID, UserID: 7, Status: ReviewPending, Version: 2, CreatedAt: now, UpdatedAt: now}
		s.NoError(s.store.CreateAuth(ctx, next))
	})

	s.Run("signature triple is unique", func() {
		sig := &EvidenceSignature{EvidenceID: e.ID, UserID: 8, Status: ReviewPending, Version: 1, CreatedAt: now, UpdatedAt: now}
		s.Require().NoError(s.store.CreateSignature(ctx, sig))

		dup := &EvidenceSignature{EvidenceID: e.ID, UserID: 8, Status: ReviewPending, Version: 1, CreatedAt: now, UpdatedAt: now}
		s.ErrorIs(s.store.CreateSignature(ctx, dup), sentinel.ErrConflict)
	})

	s.Run("finding triple is unique", func() {
		f := &EvidenceFinding{EvidenceID: e.ID, QualityControlID: 3, Status: FindingPending, Version: 1, CreatedAt: now, UpdatedAt: now}
		s.Require().NoError(s.store.CreateFinding(ctx, f))

		dup := &EvidenceFinding{EvidenceID: e.ID, QualityControlID: 3, Status: FindingPending, Version: 1, CreatedAt: now, UpdatedAt: now}
		s.ErrorIs(s.store.CreateFinding(ctx, dup), sentinel.ErrConflict)
	})
}

func (s *InMemoryStoreSuite) TestCloneIsolation() {
	ctx := context.Background()
	e := s.newEvidence(nil)

	fetched, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	fetched.Version = 99

	again, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(1, again.Version, "mutating a returned record must not touch the store")
}

func (s *InMemoryStoreSuite) TestFiles() {
	ctx := context.Background()

	f := &UploadedFile{Name: "doc.pdf", ContentType: "application/pdf", Size: 100, CreatedAt: time.Now()}
	s.Require().NoError(s.store.CreateFile(ctx, f))
	s.NotZero(f.ID)

	fetched, err := s.store.FindFile(ctx, f.ID)
	s.NoError(err)
	s.Equal("doc.pdf", fetched.Name)

	_, err = s.store.FindFile(ctx, 9999)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
