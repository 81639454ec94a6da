package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ptkach/nomulus/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 198.51.100.2 "}, want: "198.51.100.2"},
		{name: "remote addr", remote: "192.0.2.1:5443", want: "192.0.2.1"},
		{name: "ipv6 remote addr", remote: "[::1]:5443", want: "[::1]"},
		{name: "nothing", want: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/epp", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req))
		})
	}
}

func TestClientMetadata(t *testing.T) {
	var gotIP, gotID string
	h := ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotID = requestcontext.RequestID(r.Context())
	}))

	t.Run("keeps the proxy request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/epp", nil)
		req.Header.Set(RequestIDHeader, "req-1")
		req.Header.Set("X-Real-IP", "198.51.100.2")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, "req-1", gotID)
		assert.Equal(t, "198.51.100.2", gotIP)
		assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
	})

	t.Run("assigns one otherwise", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/epp", nil))
		assert.NotEmpty(t, gotID)
		assert.Equal(t, gotID, w.Header().Get(RequestIDHeader))
	})
}
