package eav

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"custodia/internal/attribute"
)

// Date-only values are accepted alongside full timestamps because clients
// submit both from the same form controls.
const dateOnlyLayout = "2006-01-02"

// Coerce converts a raw client value into a typed Value for the attribute.
// Returns a plain error describing the mismatch; callers attach the field
// name and error code.
func Coerce(attr *attribute.Attribute, raw any) (*Value, error) {
	v := &Value{AttributeID: attr.ID, Slug: attr.Slug, Datatype: attr.Datatype}
	switch attr.Datatype {
	case attribute.DatatypeText:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected text, got %T", raw)
		}
		v.Text = &s

	case attribute.DatatypeNumber:
		n, err := coerceNumber(raw)
		if err != nil {
			return nil, err
		}
		v.Number = &n

	case attribute.DatatypeDate:
		t, err := coerceDate(raw)
		if err != nil {
			return nil, err
		}
		v.Date = &t

	case attribute.DatatypeBoolean:
		b, err := coerceBool(raw)
		if err != nil {
			return nil, err
		}
		v.Bool = &b

	case attribute.DatatypeEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected one of %v, got %T", attr.Choices, raw)
		}
		if !attr.HasChoice(s) {
			return nil, fmt.Errorf("%q is not one of %v", s, attr.Choices)
		}
		v.Text = &s

	default:
		return nil, fmt.Errorf("attribute has unknown datatype %q", attr.Datatype)
	}
	return v, nil
}

func coerceNumber(raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}
}

func coerceDate(raw any) (time.Time, error) {
	switch d := raw.(type) {
	case time.Time:
		return d.UTC(), nil
	case string:
		if t, err := time.Parse(time.RFC3339, d); err == nil {
			return t.UTC(), nil
		}
		if t, err := time.Parse(dateOnlyLayout, d); err == nil {
			return t.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("%q is not a date (want RFC 3339 or YYYY-MM-DD)", d)
	default:
		return time.Time{}, fmt.Errorf("expected date, got %T", raw)
	}
}

func coerceBool(raw any) (bool, error) {
	switch b := raw.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return false, fmt.Errorf("%q is not a boolean", b)
	default:
		return false, fmt.Errorf("expected boolean, got %T", raw)
	}
}
