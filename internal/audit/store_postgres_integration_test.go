//go:build integration

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custodia/pkg/testutil/containers"
)

type PostgresOutboxIntegrationSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresOutbox
}

func TestPostgresOutboxIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration suite in short mode")
	}
	suite.Run(t, new(PostgresOutboxIntegrationSuite))
}

func (s *PostgresOutboxIntegrationSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgresOutbox(s.pg.DB)
}

func (s *PostgresOutboxIntegrationSuite) SetupTest() {
	_, err := s.pg.DB.Exec(`TRUNCATE audit_outbox`)
	require.NoError(s.T(), err)
}

func (s *PostgresOutboxIntegrationSuite) appendEntry(at time.Time) *OutboxEntry {
	entry := &OutboxEntry{
		ID:        uuid.NewString(),
		Payload:   []byte(`{"action":"created","entity":"evidence"}`),
		CreatedAt: at,
	}
	s.Require().NoError(s.store.Append(context.Background(), entry))
	return entry
}

func (s *PostgresOutboxIntegrationSuite) TestDrainOrderAndLimit() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	second := s.appendEntry(base.Add(time.Second))
	first := s.appendEntry(base)
	s.appendEntry(base.Add(2 * time.Second))

	pending, err := s.store.ListUnpublished(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(first.ID, pending[0].ID)
	s.Equal(second.ID, pending[1].ID)
}

func (s *PostgresOutboxIntegrationSuite) TestMarkPublished() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	kept := s.appendEntry(now)
	published := s.appendEntry(now.Add(time.Second))

	s.Require().NoError(s.store.MarkPublished(ctx, []string{published.ID}, now.Add(2*time.Second)))

	pending, err := s.store.ListUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(kept.ID, pending[0].ID)

	// Re-marking an already published entry is a no-op.
	s.Require().NoError(s.store.MarkPublished(ctx, []string{published.ID}, now.Add(time.Hour)))

	var publishedAt time.Time
	err = s.pg.DB.QueryRow(`SELECT published_at FROM audit_outbox WHERE id = $1`, published.ID).Scan(&publishedAt)
	s.Require().NoError(err)
	s.True(publishedAt.Before(now.Add(time.Minute)))
}
