package customfield

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"custodia/internal/attribute"
	"custodia/internal/eav"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/tx"
	"custodia/pkg/requestcontext"
	"custodia/pkg/testutil"
)

// stubRefCounter returns fixed reference data; the evidence-type store
// provides the real implementation.
type stubRefCounter struct {
	refs    int
	typeIDs []id.EvidenceTypeID
}

func (c *stubRefCounter) CountCustomFieldRefs(context.Context, id.CustomFieldID) (int, error) {
	return c.refs, nil
}

func (c *stubRefCounter) ListCustomFieldRefs(context.Context, id.CustomFieldID) ([]id.EvidenceTypeID, error) {
	return c.typeIDs, nil
}

// recordingInvalidator captures which type schemas were dropped.
type recordingInvalidator struct {
	dropped []id.EvidenceTypeID
}

func (r *recordingInvalidator) Invalidate(_ context.Context, typeID id.EvidenceTypeID) {
	r.dropped = append(r.dropped, typeID)
}

func adminContext() context.Context {
	ctx := requestcontext.WithUserID(context.Background(), 1)
	return requestcontext.WithPermissions(ctx, []string{
		"add_customfield", "change_customfield", "delete_customfield",
	})
}

type CustomFieldServiceSuite struct {
	suite.Suite
	attrStore   *attribute.InMemoryStore
	store       *InMemoryStore
	engine      *eav.Engine
	refs        *stubRefCounter
	invalidator *recordingInvalidator
	service     *Service
}

func TestCustomFieldServiceSuite(t *testing.T) {
	suite.Run(t, new(CustomFieldServiceSuite))
}

func (s *CustomFieldServiceSuite) SetupTest() {
	logger := testutil.DiscardLogger()
	s.attrStore = attribute.NewInMemoryStore()
	s.store = NewInMemoryStore()
	s.engine = eav.NewEngine(eav.NewInMemoryStore(), s.attrStore, nil, logger)
	s.refs = &stubRefCounter{}
	s.invalidator = &recordingInvalidator{}
	registry := attribute.NewService(s.attrStore, logger)
	s.service = NewService(s.store, registry, s.attrStore, s.engine, s.refs, s.invalidator, tx.NoopRunner{}, logger)
}

func (s *CustomFieldServiceSuite) mustCreate(name, slug string) *CustomField {
	f, err := s.service.Create(adminContext(), CreateInput{
		AttributeName: name,
		AttributeSlug: slug,
		Datatype:      attribute.DatatypeText,
	})
	s.Require().NoError(err)
	return f
}

func (s *CustomFieldServiceSuite) TestCreate() {
	ctx := adminContext()

	s.Run("defines the backing attribute alongside the field", func() {
		f, err := s.service.Create(ctx, CreateInput{
			AttributeName: "Contract Number",
			AttributeSlug: "contract_number",
			Datatype:      attribute.DatatypeText,
			Description:   "External contract reference",
		})
		s.NoError(err)
		s.NotZero(f.ID)
		s.Require().NotNil(f.Attribute)
		s.Equal("contract_number", f.Attribute.Slug)

		attr, err := s.attrStore.FindBySlug(ctx, "contract_number")
		s.NoError(err)
		s.Equal(f.AttributeID, attr.ID)
	})

	s.Run("duplicate slug fails the whole operation", func() {
		s.mustCreate("First", "taken_slug")
		before, err := s.store.List(ctx, false)
		s.Require().NoError(err)

		_, err = s.service.Create(ctx, CreateInput{
			AttributeName: "Second",
			AttributeSlug: "taken_slug",
			Datatype:      attribute.DatatypeText,
		})
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeConflict))

		after, err := s.store.List(ctx, false)
		s.NoError(err)
		s.Len(after, len(before))
	})

	s.Run("enum field carries its choices", func() {
		f, err := s.service.Create(ctx, CreateInput{
			AttributeName: "Risk Level",
			AttributeSlug: "risk_level",
			Datatype:      attribute.DatatypeEnum,
			Choices:       []string{"low", "high"},
		})
		s.NoError(err)
		s.Equal([]string{"low", "high"}, f.Attribute.Choices)
	})
}

func (s *CustomFieldServiceSuite) TestGet() {
	ctx := context.Background()

	s.Run("resolves the backing attribute", func() {
		created := s.mustCreate("Resolved", "resolved_slug")

		f, err := s.service.Get(ctx, created.ID)
		s.NoError(err)
		s.Require().NotNil(f.Attribute)
		s.Equal("resolved_slug", f.Attribute.Slug)
	})

	s.Run("missing field returns not found", func() {
		_, err := s.service.Get(ctx, 9999)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *CustomFieldServiceSuite) TestUpdate() {
	ctx := adminContext()
	created := s.mustCreate("Editable", "editable_slug")

	desc := "new description"
	f, err := s.service.Update(ctx, created.ID, UpdateInput{Description: &desc})
	s.NoError(err)
	s.Equal("new description", f.Description)
	// Attribute metadata is untouched by wrapper updates.
	s.Equal("editable_slug", f.Attribute.Slug)
}

func (s *CustomFieldServiceSuite) TestDeactivate() {
	ctx := adminContext()

	s.Run("retires the field and its attribute", func() {
		created := s.mustCreate("Retiring", "retiring_slug")

		f, err := s.service.Deactivate(ctx, created.ID)
		s.NoError(err)
		s.False(f.Active)

		attr, err := s.attrStore.FindByID(ctx, created.AttributeID)
		s.NoError(err)
		s.False(attr.Active)
	})

	s.Run("stored values stay readable after deactivation", func() {
		created := s.mustCreate("Sticky", "sticky_slug")
		s.Require().NoError(s.engine.SetValue(ctx, 1, created.AttributeID, "kept"))

		_, err := s.service.Deactivate(ctx, created.ID)
		s.Require().NoError(err)

		values, err := s.engine.Values(ctx, 1)
		s.NoError(err)
		s.Equal("kept", values["sticky_slug"])
	})
}

func (s *CustomFieldServiceSuite) TestDelete() {
	ctx := adminContext()

	s.Run("refused while evidence types reference the field", func() {
		created := s.mustCreate("Referenced", "referenced_slug")
		s.refs.refs = 2

		err := s.service.Delete(ctx, created.ID)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvariantViolation))
		s.Contains(err.Error(), "deactivate it instead")

		// Field and attribute are untouched.
		_, err = s.service.Get(ctx, created.ID)
		s.NoError(err)
	})

	s.Run("cascades to attribute and stored values", func() {
		s.refs.refs = 0
		created := s.mustCreate("Doomed", "doomed_slug")
		s.Require().NoError(s.engine.SetValue(ctx, 5, created.AttributeID, "gone"))

		err := s.service.Delete(ctx, created.ID)
		s.NoError(err)

		_, err = s.service.Get(ctx, created.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))

		_, err = s.attrStore.FindByID(ctx, created.AttributeID)
		s.Error(err)

		values, err := s.engine.Values(ctx, 5)
		s.NoError(err)
		s.Empty(values)
	})

	s.Run("missing field returns not found", func() {
		err := s.service.Delete(ctx, 9999)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *CustomFieldServiceSuite) TestPermissions() {
	s.Run("anonymous callers are rejected", func() {
		_, err := s.service.Create(context.Background(), CreateInput{
			AttributeName: "Blocked",
			AttributeSlug: "blocked_slug",
			Datatype:      attribute.DatatypeText,
		})
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("mutations need the matching permission", func() {
		created := s.mustCreate("Guarded", "guarded_slug")
		viewer := requestcontext.WithPermissions(
			requestcontext.WithUserID(context.Background(), 2), []string{"view_customfield"})

		_, err := s.service.Create(viewer, CreateInput{
			AttributeName: "Denied",
			AttributeSlug: "denied_slug",
			Datatype:      attribute.DatatypeText,
		})
		s.True(dErrors.Is(err, dErrors.CodeForbidden))

		desc := "nope"
		_, err = s.service.Update(viewer, created.ID, UpdateInput{Description: &desc})
		s.True(dErrors.Is(err, dErrors.CodeForbidden))

		err = s.service.Delete(viewer, created.ID)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))

		// The field is untouched.
		f, err := s.service.Get(context.Background(), created.ID)
		s.NoError(err)
		s.True(f.Active)
	})
}

func (s *CustomFieldServiceSuite) TestSchemaInvalidation() {
	ctx := adminContext()
	created := s.mustCreate("Cached", "cached_slug")
	s.refs.typeIDs = []id.EvidenceTypeID{11, 12}

	s.Run("update drops cached schemas of referencing types", func() {
		desc := "changed"
		_, err := s.service.Update(ctx, created.ID, UpdateInput{Description: &desc})
		s.Require().NoError(err)
		s.Equal([]id.EvidenceTypeID{11, 12}, s.invalidator.dropped)
	})

	s.Run("deactivate drops them as well", func() {
		s.invalidator.dropped = nil
		_, err := s.service.Deactivate(ctx, created.ID)
		s.Require().NoError(err)
		s.Equal([]id.EvidenceTypeID{11, 12}, s.invalidator.dropped)
	})
}
