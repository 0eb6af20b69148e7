package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"custodia/pkg/requestcontext"
	"custodia/pkg/testutil"
)

type RecorderSuite struct {
	suite.Suite
	outbox   *InMemoryOutbox
	recorder *Recorder
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.outbox = NewInMemoryOutbox()
	s.recorder = NewRecorder(s.outbox, testutil.DiscardLogger())
}

func (s *RecorderSuite) TestRecord() {
	fixed := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), fixed)
	ctx = requestcontext.WithUserID(ctx, 42)

	err := s.recorder.Record(ctx, "evidence.created", "evidence", 17)
	s.Require().NoError(err)

	entries, err := s.outbox.ListUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)

	entry := entries[0]
	_, parseErr := uuid.Parse(entry.ID)
	s.NoError(parseErr)
	s.Equal(fixed, entry.CreatedAt)
	s.Nil(entry.PublishedAt)

	var event Event
	s.Require().NoError(json.Unmarshal(entry.Payload, &event))
	s.Equal("evidence.created", event.Action)
	s.Equal("evidence", event.Entity)
	s.EqualValues(17, event.EntityID)
	s.EqualValues(42, event.ActorID)
	s.Equal(fixed, event.At)
}

func (s *RecorderSuite) TestOutboxPublishing() {
	ctx := context.Background()

	s.Require().NoError(s.recorder.Record(ctx, "a", "evidence", 1))
	s.Require().NoError(s.recorder.Record(ctx, "b", "evidence", 2))
	s.Require().NoError(s.recorder.Record(ctx, "c", "evidence", 3))

	entries, err := s.outbox.ListUnpublished(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2, "limit caps the batch")

	at := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	s.Require().NoError(s.outbox.MarkPublished(ctx, []string{entries[0].ID, entries[1].ID}, at))

	remaining, err := s.outbox.ListUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1, "published entries drop out of the drain")

	// Marking again must not move the publish timestamp.
	s.Require().NoError(s.outbox.MarkPublished(ctx, []string{entries[0].ID}, at.Add(time.Hour)))
	all, err := s.outbox.ListUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Len(all, 1)
}
