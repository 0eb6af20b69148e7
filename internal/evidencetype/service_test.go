package evidencetype

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"custodia/internal/attribute"
	"custodia/internal/customfield"
	"custodia/internal/eav"
	"custodia/internal/workflow"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/tx"
	"custodia/pkg/requestcontext"
	"custodia/pkg/testutil"
)

func adminContext() context.Context {
	ctx := requestcontext.WithUserID(context.Background(), 1)
	return requestcontext.WithPermissions(ctx, []string{
		"add_evidencetype", "change_evidencetype", "delete_evidencetype",
		"add_customfield", "add_workflow", "add_qualitycontrol",
	})
}

// mapCache is an in-process SchemaCache; the redis implementation lives in
// the cache subpackage and is covered by integration tests.
type mapCache struct {
	entries map[id.EvidenceTypeID][]SchemaField
	hits    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[id.EvidenceTypeID][]SchemaField)}
}

func (c *mapCache) Get(_ context.Context, typeID id.EvidenceTypeID) ([]SchemaField, bool) {
	schema, ok := c.entries[typeID]
	if ok {
		c.hits++
	}
	return schema, ok
}

func (c *mapCache) Set(_ context.Context, typeID id.EvidenceTypeID, schema []SchemaField) {
	c.entries[typeID] = schema
}

func (c *mapCache) Invalidate(_ context.Context, typeID id.EvidenceTypeID) {
	delete(c.entries, typeID)
}

type EvidenceTypeServiceSuite struct {
	suite.Suite
	store    *InMemoryStore
	workflow *workflow.Service
	fields   *customfield.Service
	cache    *mapCache
	service  *Service

	group *workflow.EvidenceGroup
}

func TestEvidenceTypeServiceSuite(t *testing.T) {
	suite.Run(t, new(EvidenceTypeServiceSuite))
}

func (s *EvidenceTypeServiceSuite) SetupTest() {
	logger := testutil.DiscardLogger()
	s.store = NewInMemoryStore()
	s.workflow = workflow.NewService(workflow.NewInMemoryStore(), logger)

	attrStore := attribute.NewInMemoryStore()
	engine := eav.NewEngine(eav.NewInMemoryStore(), attrStore, nil, logger)
	s.fields = customfield.NewService(customfield.NewInMemoryStore(),
		attribute.NewService(attrStore, logger), attrStore, engine, s.store, nil, tx.NoopRunner{}, logger)

	s.cache = newMapCache()
	s.service = NewService(s.store, s.workflow, s.fields, s.cache, logger)

	group, err := s.workflow.CreateGroup(adminContext(), "Compliance", "compliance", "")
	s.Require().NoError(err)
	s.group = group
}

func (s *EvidenceTypeServiceSuite) mustCreateType(name, alias string, parentID *id.EvidenceTypeID) *EvidenceType {
	t, err := s.service.Create(adminContext(), CreateInput{
		Name:     name,
		Alias:    alias,
		GroupID:  s.group.ID,
		ParentID: parentID,
	})
	s.Require().NoError(err)
	return t
}

func (s *EvidenceTypeServiceSuite) mustCreateField(name, slug string) *customfield.CustomField {
	f, err := s.fields.Create(adminContext(), customfield.CreateInput{
		AttributeName: name,
		AttributeSlug: slug,
		Datatype:      attribute.DatatypeText,
	})
	s.Require().NoError(err)
	return f
}

func (s *EvidenceTypeServiceSuite) TestCreate() {
	ctx := adminContext()

	s.Run("root type starts at level zero", func() {
		t := s.mustCreateType("Contract", "contract", nil)
		s.Equal(0, t.Level)
		s.True(t.Active)
	})

	s.Run("child level is derived from the parent", func() {
		root := s.mustCreateType("Root", "root", nil)
		child := s.mustCreateType("Child", "child", &root.ID)
		grandchild := s.mustCreateType("Grandchild", "grandchild", &child.ID)
		s.Equal(1, child.Level)
		s.Equal(2, grandchild.Level)
	})

	s.Run("unknown group is rejected", func() {
		_, err := s.service.Create(ctx, CreateInput{Name: "Orphan", Alias: "orphan", GroupID: 9999})
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("unknown parent is rejected", func() {
		missing := id.EvidenceTypeID(9999)
		_, err := s.service.Create(ctx, CreateInput{
			Name: "NoParent", Alias: "no-parent", GroupID: s.group.ID, ParentID: &missing,
		})
		s.Error(err)
		s.Contains(err.Error(), "parent evidence type not found")
	})

	s.Run("duplicate alias conflicts", func() {
		s.mustCreateType("First", "dup", nil)
		_, err := s.service.Create(ctx, CreateInput{Name: "Second", Alias: "dup", GroupID: s.group.ID})
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})
}

func (s *EvidenceTypeServiceSuite) TestUpdate() {
	ctx := adminContext()

	s.Run("reparenting recomputes the level", func() {
		root := s.mustCreateType("Reparent Root", "reparent-root", nil)
		moved := s.mustCreateType("Moved", "moved", nil)
		s.Equal(0, moved.Level)

		updated, err := s.service.Update(ctx, moved.ID, UpdateInput{ParentID: &root.ID, Reparent: true})
		s.NoError(err)
		s.Equal(1, updated.Level)

		// Moving back to root resets the level.
		updated, err = s.service.Update(ctx, moved.ID, UpdateInput{ParentID: nil, Reparent: true})
		s.NoError(err)
		s.Equal(0, updated.Level)
	})

	s.Run("reparenting shifts descendant levels too", func() {
		root := s.mustCreateType("Tree Root", "tree-root", nil)
		mid := s.mustCreateType("Tree Mid", "tree-mid", &root.ID)
		leaf := s.mustCreateType("Tree Leaf", "tree-leaf", &mid.ID)
		s.Equal(1, mid.Level)
		s.Equal(2, leaf.Level)

		// Lift the middle node to the root; its subtree follows.
		updated, err := s.service.Update(ctx, mid.ID, UpdateInput{ParentID: nil, Reparent: true})
		s.Require().NoError(err)
		s.Equal(0, updated.Level)

		got, err := s.service.Get(ctx, leaf.ID)
		s.Require().NoError(err)
		s.Equal(1, got.Level)
	})

	s.Run("type cannot move under its own descendant", func() {
		top := s.mustCreateType("Cycle Top", "cycle-top", nil)
		bottom := s.mustCreateType("Cycle Bottom", "cycle-bottom", &top.ID)

		_, err := s.service.Update(ctx, top.ID, UpdateInput{ParentID: &bottom.ID, Reparent: true})
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("type cannot be its own parent", func() {
		t := s.mustCreateType("Selfish", "selfish", nil)
		_, err := s.service.Update(ctx, t.ID, UpdateInput{ParentID: &t.ID, Reparent: true})
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("update invalidates the cached schema", func() {
		t := s.mustCreateType("Cached", "cached", nil)
		s.cache.Set(ctx, t.ID, []SchemaField{})

		name := "Renamed"
		_, err := s.service.Update(ctx, t.ID, UpdateInput{Name: &name})
		s.NoError(err)
		_, ok := s.cache.entries[t.ID]
		s.False(ok)
	})
}

func (s *EvidenceTypeServiceSuite) TestPermissions() {
	s.Run("anonymous callers are rejected", func() {
		_, err := s.service.Create(context.Background(), CreateInput{
			Name: "Blocked", Alias: "blocked", GroupID: s.group.ID,
		})
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("mutations need the matching permission", func() {
		t := s.mustCreateType("Guarded", "guarded", nil)
		f := s.mustCreateField("Guarded Field", "guarded_field")
		viewer := requestcontext.WithPermissions(
			requestcontext.WithUserID(context.Background(), 2), []string{"view_evidencetype"})

		_, err := s.service.Create(viewer, CreateInput{Name: "Denied", Alias: "denied", GroupID: s.group.ID})
		s.True(dErrors.Is(err, dErrors.CodeForbidden))

		name := "Renamed"
		_, err = s.service.Update(viewer, t.ID, UpdateInput{Name: &name})
		s.True(dErrors.Is(err, dErrors.CodeForbidden))

		_, err = s.service.AttachCustomField(viewer, t.ID, AttachFieldInput{CustomFieldID: f.ID})
		s.True(dErrors.Is(err, dErrors.CodeForbidden))

		err = s.service.Delete(viewer, t.ID)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))

		// Reads stay open to any authenticated caller.
		_, err = s.service.Get(viewer, t.ID)
		s.NoError(err)
	})
}

func (s *EvidenceTypeServiceSuite) TestDelete() {
	ctx := adminContext()

	s.Run("leaf type is removed", func() {
		t := s.mustCreateType("Leaf", "leaf", nil)
		s.NoError(s.service.Delete(ctx, t.ID))
		_, err := s.service.Get(ctx, t.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("type with children is refused", func() {
		root := s.mustCreateType("Parent", "parent", nil)
		s.mustCreateType("Kid", "kid", &root.ID)

		err := s.service.Delete(ctx, root.ID)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvariantViolation))
	})
}

func (s *EvidenceTypeServiceSuite) TestAttachCustomField() {
	ctx := adminContext()

	s.Run("defaults the group label", func() {
		t := s.mustCreateType("Labeled", "labeled", nil)
		f := s.mustCreateField("Plain", "plain_field")

		link, err := s.service.AttachCustomField(ctx, t.ID, AttachFieldInput{CustomFieldID: f.ID})
		s.NoError(err)
		s.Equal(DefaultGroupLabel, link.GroupLabel)
		s.True(link.Active)
	})

	s.Run("duplicate attachment conflicts", func() {
		t := s.mustCreateType("Twice Type", "twice-type", nil)
		f := s.mustCreateField("Twice Field", "twice_field")

		_, err := s.service.AttachCustomField(ctx, t.ID, AttachFieldInput{CustomFieldID: f.ID})
		s.Require().NoError(err)
		_, err = s.service.AttachCustomField(ctx, t.ID, AttachFieldInput{CustomFieldID: f.ID})
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("unknown field is rejected", func() {
		t := s.mustCreateType("No Field", "no-field", nil)
		_, err := s.service.AttachCustomField(ctx, t.ID, AttachFieldInput{CustomFieldID: 9999})
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *EvidenceTypeServiceSuite) TestQualityControlLinks() {
	ctx := adminContext()
	t := s.mustCreateType("Controlled", "controlled", nil)
	qc, err := s.workflow.CreateQualityControl(ctx, "Completeness")
	s.Require().NoError(err)

	link, err := s.service.AttachQualityControl(ctx, t.ID, qc.ID)
	s.NoError(err)
	s.Equal(qc.ID, link.QualityControlID)

	_, err = s.service.AttachQualityControl(ctx, t.ID, qc.ID)
	s.True(dErrors.Is(err, dErrors.CodeConflict))

	links, err := s.service.ListQualityControls(ctx, t.ID)
	s.NoError(err)
	s.Len(links, 1)

	s.NoError(s.service.DetachQualityControl(ctx, t.ID, qc.ID))
	err = s.service.DetachQualityControl(ctx, t.ID, qc.ID)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *EvidenceTypeServiceSuite) TestSchema() {
	ctx := adminContext()

	s.Run("resolves attached fields with overrides", func() {
		t := s.mustCreateType("Schematic", "schematic", nil)
		f := s.mustCreateField("Mandatory Field", "mandatory_field")

		_, err := s.service.AttachCustomField(ctx, t.ID, AttachFieldInput{
			CustomFieldID: f.ID,
			Mandatory:     true,
			GroupLabel:    "Identification",
		})
		s.Require().NoError(err)

		schema, err := s.service.Schema(ctx, t.ID)
		s.NoError(err)
		s.Require().Len(schema, 1)
		s.True(schema[0].Mandatory)
		s.Equal("Identification", schema[0].GroupLabel)
		s.Equal("mandatory_field", schema[0].CustomField.Attribute.Slug)
	})

	s.Run("second resolution reads the cache", func() {
		t := s.mustCreateType("Hot", "hot", nil)
		f := s.mustCreateField("Hot Field", "hot_field")
		_, err := s.service.AttachCustomField(ctx, t.ID, AttachFieldInput{CustomFieldID: f.ID})
		s.Require().NoError(err)

		_, err = s.service.Schema(ctx, t.ID)
		s.Require().NoError(err)
		before := s.cache.hits

		_, err = s.service.Schema(ctx, t.ID)
		s.NoError(err)
		s.Equal(before+1, s.cache.hits)
	})

	s.Run("attach invalidates so the next read re-resolves", func() {
		t := s.mustCreateType("Growing", "growing", nil)
		f1 := s.mustCreateField("First Field", "first_field")
		_, err := s.service.AttachCustomField(ctx, t.ID, AttachFieldInput{CustomFieldID: f1.ID})
		s.Require().NoError(err)

		schema, err := s.service.Schema(ctx, t.ID)
		s.Require().NoError(err)
		s.Require().Len(schema, 1)

		f2 := s.mustCreateField("Second Field", "second_field")
		_, err = s.service.AttachCustomField(ctx, t.ID, AttachFieldInput{CustomFieldID: f2.ID})
		s.Require().NoError(err)

		schema, err = s.service.Schema(ctx, t.ID)
		s.NoError(err)
		s.Len(schema, 2)
	})

	s.Run("missing type returns not found", func() {
		_, err := s.service.Schema(ctx, 9999)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}
