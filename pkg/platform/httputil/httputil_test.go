package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/ptkach/nomulus/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		code        string
		description string
	}{
		{
			name:   "internal error omits description",
			err:    dErrors.New(dErrors.CodeInternal, "db failed"),
			status: http.StatusInternalServerError,
			code:   "internal_error",
		},
		{
			name:   "uncoded errors are internal",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   "internal_error",
		},
		{
			name:        "bad request includes description",
			err:         dErrors.New(dErrors.CodeBadRequest, "registrar is required"),
			status:      http.StatusBadRequest,
			code:        "bad_request",
			description: "registrar is required",
		},
		{
			name:        "unauthorized",
			err:         dErrors.New(dErrors.CodeUnauthorized, "tool token required"),
			status:      http.StatusUnauthorized,
			code:        "unauthorized",
			description: "tool token required",
		},
		{
			name:   "unavailable hides the cause",
			err:    dErrors.Wrap(errors.New("dial tcp"), dErrors.CodeUnavailable, "store unreachable"),
			status: http.StatusServiceUnavailable,
			code:   "unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.code, body["error"])
			if tt.description == "" {
				assert.NotContains(t, body, "error_description")
			} else {
				assert.Equal(t, tt.description, body["error_description"])
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
