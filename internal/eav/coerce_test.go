package eav

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/attribute"
)

func TestCoerceText(t *testing.T) {
	attr := &attribute.Attribute{ID: 1, Slug: "note", Datatype: attribute.DatatypeText}

	v, err := Coerce(attr, "hello")
	require.NoError(t, err)
	require.NotNil(t, v.Text)
	assert.Equal(t, "hello", *v.Text)

	_, err = Coerce(attr, 42.0)
	assert.Error(t, err)
}

func TestCoerceNumber(t *testing.T) {
	attr := &attribute.Attribute{ID: 2, Slug: "amount", Datatype: attribute.DatatypeNumber}

	cases := []struct {
		name string
		raw  any
		want float64
	}{
		{"float64", 12.5, 12.5},
		{"int", 7, 7},
		{"numeric string", " 33.25 ", 33.25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Coerce(attr, tc.raw)
			require.NoError(t, err)
			require.NotNil(t, v.Number)
			assert.Equal(t, tc.want, *v.Number)
		})
	}

	_, err := Coerce(attr, "not-a-number")
	assert.Error(t, err)
	_, err = Coerce(attr, true)
	assert.Error(t, err)
}

func TestCoerceDate(t *testing.T) {
	attr := &attribute.Attribute{ID: 3, Slug: "due", Datatype: attribute.DatatypeDate}

	t.Run("RFC 3339 timestamp", func(t *testing.T) {
		v, err := Coerce(attr, "2025-06-30T15:04:05Z")
		require.NoError(t, err)
		require.NotNil(t, v.Date)
		assert.Equal(t, time.Date(2025, 6, 30, 15, 4, 5, 0, time.UTC), *v.Date)
	})

	t.Run("date-only string", func(t *testing.T) {
		v, err := Coerce(attr, "2025-06-30")
		require.NoError(t, err)
		require.NotNil(t, v.Date)
		assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), *v.Date)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := Coerce(attr, "soon")
		assert.Error(t, err)
	})
}

func TestCoerceBoolean(t *testing.T) {
	attr := &attribute.Attribute{ID: 4, Slug: "approved", Datatype: attribute.DatatypeBoolean}

	v, err := Coerce(attr, true)
	require.NoError(t, err)
	require.NotNil(t, v.Bool)
	assert.True(t, *v.Bool)

	v, err = Coerce(attr, "False")
	require.NoError(t, err)
	require.NotNil(t, v.Bool)
	assert.False(t, *v.Bool)

	_, err = Coerce(attr, "maybe")
	assert.Error(t, err)
}

func TestCoerceEnum(t *testing.T) {
	attr := &attribute.Attribute{
		ID: 5, Slug: "risk", Datatype: attribute.DatatypeEnum,
		Choices: []string{"low", "medium", "high"},
	}

	v, err := Coerce(attr, "medium")
	require.NoError(t, err)
	require.NotNil(t, v.Text)
	assert.Equal(t, "medium", *v.Text)

	_, err = Coerce(attr, "extreme")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not one of")
}

func TestValueNative(t *testing.T) {
	n := 4.5
	v := &Value{Datatype: attribute.DatatypeNumber, Number: &n}
	assert.Equal(t, 4.5, v.Native())

	b := true
	v = &Value{Datatype: attribute.DatatypeBoolean, Bool: &b}
	assert.Equal(t, true, v.Native())

	s := "high"
	v = &Value{Datatype: attribute.DatatypeEnum, Text: &s}
	assert.Equal(t, "high", v.Native())

	v = &Value{Datatype: attribute.DatatypeText}
	assert.Nil(t, v.Native())
}
