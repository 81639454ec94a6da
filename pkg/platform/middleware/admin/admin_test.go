package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ptkach/nomulus/internal/platform/logger"
)

func TestRequireToolToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	tests := []struct {
		name     string
		expected string
		sent     string
		status   int
	}{
		{name: "matching token", expected: "s3cret", sent: "s3cret", status: http.StatusNoContent},
		{name: "missing token", expected: "s3cret", status: http.StatusUnauthorized},
		{name: "wrong token", expected: "s3cret", sent: "guess", status: http.StatusUnauthorized},
		{name: "unconfigured", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/epp/tool", nil)
			if tt.sent != "" {
				req.Header.Set(TokenHeader, tt.sent)
			}
			w := httptest.NewRecorder()
			RequireToolToken(tt.expected, logger.Discard())(ok).ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
