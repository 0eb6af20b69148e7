package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "custodia/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("coded errors pass message and status through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, dErrors.New(dErrors.CodeNotFound, "evidence not found"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "not_found", resp.Error)
		assert.Equal(t, "evidence not found", resp.Message)
	})

	t.Run("duplicates and dependency refusals map to 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, dErrors.New(dErrors.CodeConflict, "alias already exists"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = httptest.NewRecorder()
		WriteError(rec, dErrors.New(dErrors.CodeInvariantViolation, "custom field is referenced by 2 evidence type(s); deactivate it instead"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation errors carry field details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, dErrors.New(dErrors.CodeValidation, "invalid dynamic field values").
			WithFields(dErrors.FieldError{Field: "amount", Message: "expected number"}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Fields, 1)
		assert.Equal(t, "amount", resp.Fields[0].Field)
	})

	t.Run("uncoded errors are masked as internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "internal server error", resp.Message)
		assert.NotContains(t, rec.Body.String(), "pq:")
	})
}

func TestDecode(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("parses a valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
		rec := httptest.NewRecorder()

		got, ok := Decode[payload](rec, req)
		require.True(t, ok)
		assert.Equal(t, "ok", got.Name)
	})

	t.Run("malformed body writes a 400 and reports failure", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		rec := httptest.NewRecorder()

		_, ok := Decode[payload](rec, req)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
