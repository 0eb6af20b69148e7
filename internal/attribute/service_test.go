package attribute

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/pkg/testutil"
)

type AttributeServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
}

func TestAttributeServiceSuite(t *testing.T) {
	suite.Run(t, new(AttributeServiceSuite))
}

func (s *AttributeServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.service = NewService(s.store, testutil.DiscardLogger())
}

func (s *AttributeServiceSuite) TestDefine() {
	ctx := context.Background()

	s.Run("registers a text attribute", func() {
		attr, err := s.service.Define(ctx, "Contract Number", "contract_number", DatatypeText, nil)
		s.NoError(err)
		s.NotZero(attr.ID)
		s.True(attr.Active)
	})

	s.Run("rejects empty name", func() {
		_, err := s.service.Define(ctx, "", "some_slug", DatatypeText, nil)
		s.Error(err)
		s.Contains(err.Error(), "name cannot be empty")
	})

	s.Run("rejects malformed slug", func() {
		_, err := s.service.Define(ctx, "Bad Slug", "Bad-Slug", DatatypeText, nil)
		s.Error(err)
		s.Contains(err.Error(), "lowercase")
	})

	s.Run("enum requires choices", func() {
		_, err := s.service.Define(ctx, "Risk Level", "risk_level", DatatypeEnum, nil)
		s.Error(err)
		s.Contains(err.Error(), "at least one choice")
	})

	s.Run("non-enum rejects choices", func() {
		_, err := s.service.Define(ctx, "Amount", "amount", DatatypeNumber, []string{"high"})
		s.Error(err)
		s.Contains(err.Error(), "cannot carry choices")
	})

	s.Run("duplicate slug conflicts", func() {
		_, err := s.service.Define(ctx, "First", "dup_slug", DatatypeText, nil)
		s.Require().NoError(err)
		_, err = s.service.Define(ctx, "Second", "dup_slug", DatatypeText, nil)
		s.Error(err)
		s.Contains(err.Error(), "already exists")
	})
}

func (s *AttributeServiceSuite) TestGet() {
	ctx := context.Background()

	s.Run("missing attribute returns not found", func() {
		_, err := s.service.Get(ctx, 9999)
		s.Error(err)
		s.Contains(err.Error(), "not found")
	})

	s.Run("lookup by slug is case-insensitive", func() {
		defined, err := s.service.Define(ctx, "Region", "region", DatatypeText, nil)
		s.Require().NoError(err)

		attr, err := s.service.GetBySlug(ctx, "REGION")
		s.NoError(err)
		s.Equal(defined.ID, attr.ID)
	})
}

func (s *AttributeServiceSuite) TestDeactivate() {
	ctx := context.Background()

	s.Run("marks attribute inactive", func() {
		fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		defined, err := s.service.Define(ctx, "Old Field", "old_field", DatatypeText, nil)
		s.Require().NoError(err)

		attr, err := s.service.Deactivate(testutil.ContextWithTime(fixed), defined.ID)
		s.NoError(err)
		s.False(attr.Active)
		s.Equal(fixed, attr.UpdatedAt)
	})

	s.Run("deactivating twice is a no-op", func() {
		defined, err := s.service.Define(ctx, "Twice", "twice", DatatypeText, nil)
		s.Require().NoError(err)

		_, err = s.service.Deactivate(ctx, defined.ID)
		s.Require().NoError(err)
		attr, err := s.service.Deactivate(ctx, defined.ID)
		s.NoError(err)
		s.False(attr.Active)
	})
}
