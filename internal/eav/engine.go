package eav

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"custodia/internal/attribute"
	"custodia/internal/platform/metrics"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// AttributeResolver supplies attribute definitions for coercion.
type AttributeResolver interface {
	FindByID(ctx context.Context, attrID id.AttributeID) (*attribute.Attribute, error)
	FindBySlug(ctx context.Context, slug string) (*attribute.Attribute, error)
}

// Engine is the dynamic attribute store: type-checked reads and writes of
// per-evidence values keyed by the attribute vocabulary.
type Engine struct {
	store   Store
	attrs   AttributeResolver
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewEngine(store Store, attrs AttributeResolver, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{store: store, attrs: attrs, metrics: m, logger: logger}
}

// SetValue coerces and writes one value. Inactive attributes reject new
// writes; values stored before deactivation stay readable.
func (e *Engine) SetValue(ctx context.Context, evidenceID id.EvidenceID, attrID id.AttributeID, raw any) error {
	attr, err := e.attrs.FindByID(ctx, attrID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "attribute not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "attribute lookup failed")
	}
	v, err := e.coerceForWrite(attr, raw)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid dynamic field value").
			WithFields(dErrors.FieldError{Field: attr.Slug, Message: err.Error()})
	}
	v.EvidenceID = evidenceID
	v.UpdatedAt = requestcontext.Now(ctx)
	if err := e.store.Upsert(ctx, v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store dynamic value")
	}
	return nil
}

// Values returns the explicitly-set values of an evidence keyed by attribute
// slug. Attributes the schema declares but the client never supplied are
// absent; no defaults are materialized.
func (e *Engine) Values(ctx context.Context, evidenceID id.EvidenceID) (map[string]any, error) {
	values, err := e.store.ListByEvidence(ctx, evidenceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dynamic values")
	}
	out := make(map[string]any, len(values))
	for _, v := range values {
		out[v.Slug] = v.Native()
	}
	return out, nil
}

// BulkSet validates every supplied field independently and writes them all,
// or none: any coercion failure aborts the whole batch with a per-field
// error list. Callers run it inside the evidence-creation transaction so a
// failure leaves no orphan values.
func (e *Engine) BulkSet(ctx context.Context, evidenceID id.EvidenceID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	start := time.Now()

	slugs := make([]string, 0, len(fields))
	for slug := range fields {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	var (
		values      []*Value
		fieldErrors []dErrors.FieldError
	)
	for _, slug := range slugs {
		attr, err := e.attrs.FindBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				fieldErrors = append(fieldErrors, dErrors.FieldError{Field: slug, Message: "unknown attribute"})
				continue
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "attribute lookup failed")
		}
		v, err := e.coerceForWrite(attr, fields[slug])
		if err != nil {
			fieldErrors = append(fieldErrors, dErrors.FieldError{Field: slug, Message: err.Error()})
			continue
		}
		values = append(values, v)
	}
	if len(fieldErrors) > 0 {
		return dErrors.New(dErrors.CodeValidation, "invalid dynamic field values").WithFields(fieldErrors...)
	}

	now := requestcontext.Now(ctx)
	for _, v := range values {
		v.EvidenceID = evidenceID
		v.UpdatedAt = now
		if err := e.store.Upsert(ctx, v); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store dynamic values")
		}
	}
	e.metrics.ObserveEAVWrite(time.Since(start))
	return nil
}

// DeleteByAttribute removes every value of an attribute; called from the
// custom-field delete cascade inside its transaction.
func (e *Engine) DeleteByAttribute(ctx context.Context, attrID id.AttributeID) error {
	if err := e.store.DeleteByAttribute(ctx, attrID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete attribute values")
	}
	return nil
}

func (e *Engine) coerceForWrite(attr *attribute.Attribute, raw any) (*Value, error) {
	if !attr.Active {
		return nil, errors.New("attribute is inactive")
	}
	return Coerce(attr, raw)
}
