// Package httputil translates domain errors into HTTP responses and keeps
// JSON response writing consistent across handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "custodia/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope returned by all endpoints.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Fields  []dErrors.FieldError `json:"fields,omitempty"`
}

// statusFor maps domain error codes to HTTP statuses. Unknown codes fall
// through to 500 so uncoded failures never leak as client errors.
func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation,
		dErrors.CodeConflict, dErrors.CodeInvariantViolation:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as a JSON error response. Internal errors are
// masked with a generic message; coded errors pass their message through.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)

	resp := ErrorResponse{Error: string(code)}
	if status == http.StatusInternalServerError {
		resp.Message = "internal server error"
	} else {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.Message = de.Message
			resp.Fields = de.Fields
		} else {
			resp.Message = err.Error()
		}
	}

	WriteJSON(w, status, resp)
}

// Decode parses the request body into T. On failure it writes a 400
// response and returns ok=false; handlers just return.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return req, false
	}
	return req, true
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
