package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
	"custodia/pkg/testutil"
)

func adminContext() context.Context {
	ctx := requestcontext.WithUserID(context.Background(), 1)
	return requestcontext.WithPermissions(ctx, []string{
		"add_workflow", "add_qualitycontrol", "change_qualitycontrol",
	})
}

type WorkflowServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
}

func TestWorkflowServiceSuite(t *testing.T) {
	suite.Run(t, new(WorkflowServiceSuite))
}

func (s *WorkflowServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.service = NewService(s.store, testutil.DiscardLogger())
}

func (s *WorkflowServiceSuite) mustCreateGroup(name, alias string) *EvidenceGroup {
	g, err := s.service.CreateGroup(adminContext(), name, alias, "")
	s.Require().NoError(err)
	return g
}

func (s *WorkflowServiceSuite) mustCreateStage(name string, position int) *EvidenceStage {
	st, err := s.service.CreateStage(adminContext(), name, position, "")
	s.Require().NoError(err)
	return st
}

func (s *WorkflowServiceSuite) TestGroups() {
	ctx := adminContext()

	s.Run("creates a group", func() {
		g := s.mustCreateGroup("Internal Audit", "internal-audit")
		s.NotZero(g.ID)
		s.True(g.Active)
	})

	s.Run("rejects empty alias", func() {
		_, err := s.service.CreateGroup(ctx, "No Alias", "", "")
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("duplicate alias conflicts", func() {
		s.mustCreateGroup("First", "dup-alias")
		_, err := s.service.CreateGroup(ctx, "Second", "dup-alias", "")
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})
}

func (s *WorkflowServiceSuite) TestStatuses() {
	ctx := adminContext()
	group := s.mustCreateGroup("Deliverables", "deliverables")
	stage := s.mustCreateStage("Review", 1)

	s.Run("creates a status inside a stage and group", func() {
		st, err := s.service.CreateStatus(ctx, "In Review", 1, "#ffcc00", "", stage.ID, group.ID)
		s.NoError(err)
		s.NotZero(st.ID)
		s.Equal(stage.ID, st.StageID)
		s.Equal(group.ID, st.GroupID)
	})

	s.Run("requires stage and group", func() {
		_, err := s.service.CreateStatus(ctx, "Orphan", 1, "", "", 0, group.ID)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("missing stage returns not found", func() {
		_, err := s.service.CreateStatus(ctx, "Ghost", 1, "", "", 9999, group.ID)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("duplicate name in same stage and group conflicts", func() {
		_, err := s.service.CreateStatus(ctx, "Unique", 2, "", "", stage.ID, group.ID)
		s.Require().NoError(err)
		_, err = s.service.CreateStatus(ctx, "Unique", 3, "", "", stage.ID, group.ID)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("same name in another group is allowed", func() {
		other := s.mustCreateGroup("Other", "other-group")
		_, err := s.service.CreateStatus(ctx, "Shared Name", 1, "", "", stage.ID, group.ID)
		s.Require().NoError(err)
		_, err = s.service.CreateStatus(ctx, "Shared Name", 1, "", "", stage.ID, other.ID)
		s.NoError(err)
	})

	s.Run("lists statuses filtered by group", func() {
		filtered := s.mustCreateGroup("Filtered", "filtered-group")
		_, err := s.service.CreateStatus(ctx, "Only Here", 1, "", "", stage.ID, filtered.ID)
		s.Require().NoError(err)

		statuses, err := s.service.ListStatuses(ctx, filtered.ID)
		s.NoError(err)
		s.Require().Len(statuses, 1)
		s.Equal("Only Here", statuses[0].Name)
	})
}

func (s *WorkflowServiceSuite) TestQualityControls() {
	ctx := adminContext()

	s.Run("creates and fetches a control", func() {
		qc, err := s.service.CreateQualityControl(ctx, "Completeness Check")
		s.NoError(err)
		s.NotZero(qc.ID)

		fetched, err := s.service.GetQualityControl(ctx, qc.ID)
		s.NoError(err)
		s.Equal(qc.Name, fetched.Name)
	})

	s.Run("rejects empty name", func() {
		_, err := s.service.CreateQualityControl(ctx, "")
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("deactivation is idempotent", func() {
		qc, err := s.service.CreateQualityControl(ctx, "Retiring")
		s.Require().NoError(err)

		first, err := s.service.DeactivateQualityControl(ctx, qc.ID)
		s.NoError(err)
		s.False(first.Active)

		second, err := s.service.DeactivateQualityControl(ctx, qc.ID)
		s.NoError(err)
		s.False(second.Active)
	})

	s.Run("missing control returns not found", func() {
		_, err := s.service.GetQualityControl(ctx, id.QualityControlID(9999))
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *WorkflowServiceSuite) TestPermissions() {
	s.Run("anonymous callers are rejected", func() {
		_, err := s.service.CreateGroup(context.Background(), "Blocked", "blocked", "")
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("catalog writes need the workflow permission", func() {
		group := s.mustCreateGroup("Guarded", "guarded")
		stage := s.mustCreateStage("Guarded Stage", 1)
		viewer := requestcontext.WithPermissions(
			requestcontext.WithUserID(context.Background(), 2), []string{"view_workflow"})

		_, err := s.service.CreateGroup(viewer, "Denied", "denied", "")
		s.True(dErrors.Is(err, dErrors.CodeForbidden))

		_, err = s.service.CreateStage(viewer, "Denied Stage", 2, "")
		s.True(dErrors.Is(err, dErrors.CodeForbidden))

		_, err = s.service.CreateStatus(viewer, "Denied Status", 1, "", "", stage.ID, group.ID)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))

		// Reads stay open to any authenticated caller.
		_, err = s.service.GetGroup(viewer, group.ID)
		s.NoError(err)
	})

	s.Run("quality controls carry their own permission", func() {
		qc, err := s.service.CreateQualityControl(adminContext(), "Guarded Control")
		s.Require().NoError(err)
		viewer := requestcontext.WithPermissions(
			requestcontext.WithUserID(context.Background(), 2), []string{"add_workflow"})

		_, err = s.service.CreateQualityControl(viewer, "Denied Control")
		s.True(dErrors.Is(err, dErrors.CodeForbidden))

		_, err = s.service.DeactivateQualityControl(viewer, qc.ID)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})
}
