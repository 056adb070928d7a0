package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/apperror"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"bad request", apperror.BadRequest("malformed body"), http.StatusBadRequest, "bad_request"},
		{"unauthorized", apperror.Unauthorized("invalid credentials"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperror.Forbidden("admin only"), http.StatusForbidden, "forbidden"},
		{"not found", apperror.NotFound("user"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("username already taken"), http.StatusConflict, "conflict"},
		{"plain error", errors.New("database exploded"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.wantKind, resp.Error)
		})
	}
}

// Internal errors must not leak their cause to the client.
func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	body := rr.Body.String()
	assert.NotContains(t, body, "10.0.0.5")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "an internal error occurred", resp.Message)
}

func TestWriteErrorIncludesValidationDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, apperror.BadRequestWithDetails("validation failed", map[string]string{
		"email": "must be a valid email address",
	}))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "must be a valid email address", resp.Details["email"])
}
