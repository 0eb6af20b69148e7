//go:build integration

package attribute

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custodia/pkg/platform/sentinel"
	"custodia/pkg/testutil/containers"
)

type PostgresStoreIntegrationSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
}

func TestPostgresStoreIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration suite in short mode")
	}
	suite.Run(t, new(PostgresStoreIntegrationSuite))
}

func (s *PostgresStoreIntegrationSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgresStore(s.pg.DB)
}

func (s *PostgresStoreIntegrationSuite) SetupTest() {
	_, err := s.pg.DB.Exec(`TRUNCATE attributes RESTART IDENTITY CASCADE`)
	require.NoError(s.T(), err)
}

func (s *PostgresStoreIntegrationSuite) newAttribute(slug string, datatype Datatype, choices ...string) *Attribute {
	attr, err := New("Attr "+slug, slug, datatype, choices, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return attr
}

func (s *PostgresStoreIntegrationSuite) TestCreateAndFind() {
	ctx := context.Background()

	attr := s.newAttribute("contract_number", DatatypeText)
	s.Require().NoError(s.store.Create(ctx, attr))
	s.NotZero(attr.ID)

	byID, err := s.store.FindByID(ctx, attr.ID)
	s.Require().NoError(err)
	s.Equal("contract_number", byID.Slug)

	bySlug, err := s.store.FindBySlug(ctx, "CONTRACT_NUMBER")
	s.Require().NoError(err)
	s.Equal(attr.ID, bySlug.ID)
}

func (s *PostgresStoreIntegrationSuite) TestSlugUniqueness() {
	ctx := context.Background()

	s.Require().NoError(s.store.Create(ctx, s.newAttribute("dup_slug", DatatypeText)))
	err := s.store.Create(ctx, s.newAttribute("dup_slug", DatatypeNumber))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreIntegrationSuite) TestChoicesRoundTrip() {
	ctx := context.Background()

	attr := s.newAttribute("risk_level", DatatypeEnum, "low", "medium", "high")
	s.Require().NoError(s.store.Create(ctx, attr))

	fetched, err := s.store.FindByID(ctx, attr.ID)
	s.Require().NoError(err)
	s.Equal([]string{"low", "medium", "high"}, fetched.Choices)
}

func (s *PostgresStoreIntegrationSuite) TestUpdateAndDelete() {
	ctx := context.Background()

	attr := s.newAttribute("mutable", DatatypeText)
	s.Require().NoError(s.store.Create(ctx, attr))

	attr.Active = false
	attr.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.Update(ctx, attr))

	active, err := s.store.List(ctx, true)
	s.Require().NoError(err)
	s.Empty(active)

	s.Require().NoError(s.store.Delete(ctx, attr.ID))
	_, err = s.store.FindByID(ctx, attr.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Delete(ctx, attr.ID), sentinel.ErrNotFound)
}
