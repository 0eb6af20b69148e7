package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
	"custodia/pkg/testutil"
)

type NotificationServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
}

func TestNotificationServiceSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceSuite))
}

func (s *NotificationServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.service = NewService(s.store, nil, testutil.DiscardLogger())
}

func (s *NotificationServiceSuite) TestCommentAdded() {
	ctx := context.Background()

	s.service.CommentAdded(ctx, 10, 7, "Invoice")

	notifications, err := s.service.List(ctx, 7)
	s.NoError(err)
	s.Require().Len(notifications, 1)
	s.Equal("New comment on Invoice", notifications[0].Content)
	s.EqualValues(10, notifications[0].EvidenceID)
	s.False(notifications[0].Opened)
}

func (s *NotificationServiceSuite) TestFindingCreated() {
	ctx := context.Background()

	// Finding creation produces a created AND an updated notification.
	s.service.FindingCreated(ctx, 10, 7, "Invoice")

	notifications, err := s.service.List(ctx, 7)
	s.NoError(err)
	s.Require().Len(notifications, 2)

	contents := []string{notifications[0].Content, notifications[1].Content}
	s.Contains(contents, "A finding was created on Invoice")
	s.Contains(contents, "A finding was updated on Invoice")
}

func (s *NotificationServiceSuite) TestFindingUpdated() {
	ctx := context.Background()

	s.service.FindingUpdated(ctx, 10, 7, "Invoice")

	notifications, err := s.service.List(ctx, 7)
	s.NoError(err)
	s.Require().Len(notifications, 1)
	s.Equal("A finding was updated on Invoice", notifications[0].Content)
}

func (s *NotificationServiceSuite) TestList() {
	ctx := context.Background()

	s.service.CommentAdded(ctx, 1, 7, "First")
	s.service.CommentAdded(ctx, 2, 7, "Second")
	s.service.CommentAdded(ctx, 3, 8, "Other User")

	notifications, err := s.service.List(ctx, 7)
	s.NoError(err)
	s.Require().Len(notifications, 2)
	// Newest first.
	s.Equal("New comment on Second", notifications[0].Content)
	s.Equal("New comment on First", notifications[1].Content)
}

func (s *NotificationServiceSuite) TestMarkOpened() {
	ctx := context.Background()
	recipientCtx := requestcontext.WithUserID(ctx, 7)

	s.Run("flags a notification as read", func() {
		s.service.CommentAdded(ctx, 1, 7, "Readable")
		notifications, err := s.service.List(ctx, 7)
		s.Require().NoError(err)
		s.Require().NotEmpty(notifications)

		opened, err := s.service.MarkOpened(recipientCtx, notifications[0].ID)
		s.NoError(err)
		s.True(opened.Opened)

		// Second open is a no-op.
		again, err := s.service.MarkOpened(recipientCtx, notifications[0].ID)
		s.NoError(err)
		s.True(again.Opened)
	})

	s.Run("another user's notification is refused", func() {
		s.service.CommentAdded(ctx, 2, 7, "Private")
		notifications, err := s.service.List(ctx, 7)
		s.Require().NoError(err)
		s.Require().NotEmpty(notifications)

		_, err = s.service.MarkOpened(requestcontext.WithUserID(ctx, 8), notifications[0].ID)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))

		fresh, err := s.service.List(ctx, 7)
		s.Require().NoError(err)
		s.False(fresh[0].Opened)
	})

	s.Run("missing notification returns not found", func() {
		_, err := s.service.MarkOpened(recipientCtx, 9999)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}
