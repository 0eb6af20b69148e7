package eav

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/attribute"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/testutil"
)

type EngineSuite struct {
	suite.Suite
	attrs  *attribute.InMemoryStore
	store  *InMemoryStore
	engine *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.attrs = attribute.NewInMemoryStore()
	s.store = NewInMemoryStore()
	s.engine = NewEngine(s.store, s.attrs, nil, testutil.DiscardLogger())
}

func (s *EngineSuite) defineAttribute(name, slug string, datatype attribute.Datatype, choices ...string) *attribute.Attribute {
	attr, err := attribute.New(name, slug, datatype, choices, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().NoError(s.attrs.Create(context.Background(), attr))
	return attr
}

func (s *EngineSuite) TestSetValue() {
	ctx := context.Background()

	s.Run("stores a coerced value", func() {
		attr := s.defineAttribute("Amount", "amount", attribute.DatatypeNumber)

		err := s.engine.SetValue(ctx, 1, attr.ID, "42.5")
		s.NoError(err)

		values, err := s.engine.Values(ctx, 1)
		s.NoError(err)
		s.Equal(42.5, values["amount"])
	})

	s.Run("unknown attribute returns not found", func() {
		err := s.engine.SetValue(ctx, 1, 9999, "x")
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("inactive attribute rejects new writes", func() {
		attr := s.defineAttribute("Retired", "retired", attribute.DatatypeText)
		attr.Deactivate(time.Now())
		s.Require().NoError(s.attrs.Update(ctx, attr))

		err := s.engine.SetValue(ctx, 1, attr.ID, "value")
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
		fields := dErrors.FieldsOf(err)
		s.Require().Len(fields, 1)
		s.Equal("retired", fields[0].Field)
	})

	s.Run("type mismatch reports the field", func() {
		attr := s.defineAttribute("Due", "due", attribute.DatatypeDate)

		err := s.engine.SetValue(ctx, 1, attr.ID, "not-a-date")
		s.Error(err)
		fields := dErrors.FieldsOf(err)
		s.Require().Len(fields, 1)
		s.Equal("due", fields[0].Field)
	})
}

func (s *EngineSuite) TestBulkSet() {
	ctx := context.Background()

	s.Run("writes every field", func() {
		s.defineAttribute("Amount", "amount", attribute.DatatypeNumber)
		s.defineAttribute("Approved", "approved", attribute.DatatypeBoolean)

		err := s.engine.BulkSet(ctx, 10, map[string]any{
			"amount":   100.0,
			"approved": true,
		})
		s.NoError(err)

		values, err := s.engine.Values(ctx, 10)
		s.NoError(err)
		s.Equal(100.0, values["amount"])
		s.Equal(true, values["approved"])
	})

	s.Run("empty batch is a no-op", func() {
		s.NoError(s.engine.BulkSet(ctx, 11, nil))
	})

	s.Run("one bad field aborts the whole batch", func() {
		s.defineAttribute("Name", "name", attribute.DatatypeText)
		s.defineAttribute("Count", "count", attribute.DatatypeNumber)

		err := s.engine.BulkSet(ctx, 12, map[string]any{
			"name":  "ok",
			"count": "not-a-number",
		})
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeValidation))

		// The valid field must not have been written.
		values, verr := s.engine.Values(ctx, 12)
		s.NoError(verr)
		s.Empty(values)
	})

	s.Run("unknown slugs are collected as field errors", func() {
		s.defineAttribute("Known", "known", attribute.DatatypeText)

		err := s.engine.BulkSet(ctx, 13, map[string]any{
			"known":     "yes",
			"ghost_one": "x",
			"ghost_two": "y",
		})
		s.Error(err)
		fields := dErrors.FieldsOf(err)
		s.Len(fields, 2)
		for _, fe := range fields {
			s.Equal("unknown attribute", fe.Message)
		}
	})
}

func (s *EngineSuite) TestValues() {
	ctx := context.Background()

	s.Run("unset attributes are absent, not defaulted", func() {
		s.defineAttribute("Set", "set_field", attribute.DatatypeText)
		s.defineAttribute("Unset", "unset_field", attribute.DatatypeText)

		s.Require().NoError(s.engine.BulkSet(ctx, 20, map[string]any{"set_field": "here"}))

		values, err := s.engine.Values(ctx, 20)
		s.NoError(err)
		s.Equal("here", values["set_field"])
		_, present := values["unset_field"]
		s.False(present)
	})

	s.Run("values survive attribute deactivation", func() {
		attr := s.defineAttribute("Legacy", "legacy", attribute.DatatypeText)
		s.Require().NoError(s.engine.SetValue(ctx, 21, attr.ID, "kept"))

		attr.Deactivate(time.Now())
		s.Require().NoError(s.attrs.Update(ctx, attr))

		values, err := s.engine.Values(ctx, 21)
		s.NoError(err)
		s.Equal("kept", values["legacy"])
	})
}

func (s *EngineSuite) TestDeleteByAttribute() {
	ctx := context.Background()

	attr := s.defineAttribute("Doomed", "doomed", attribute.DatatypeText)
	other := s.defineAttribute("Spared", "spared", attribute.DatatypeText)
	s.Require().NoError(s.engine.SetValue(ctx, 30, attr.ID, "a"))
	s.Require().NoError(s.engine.SetValue(ctx, 31, attr.ID, "b"))
	s.Require().NoError(s.engine.SetValue(ctx, 30, other.ID, "c"))

	s.NoError(s.engine.DeleteByAttribute(ctx, attr.ID))

	values, err := s.engine.Values(ctx, 30)
	s.NoError(err)
	s.Equal(map[string]any{"spared": "c"}, values)

	values, err = s.engine.Values(ctx, 31)
	s.NoError(err)
	s.Empty(values)
}
