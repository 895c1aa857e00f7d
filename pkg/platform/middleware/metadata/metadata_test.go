package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"satsvault/pkg/requestcontext"
)

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		expectedIP string
		expectedUA string
	}{
		{
			name: "ignores XFF when proxy not trusted",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.1",
				"User-Agent":      "Mozilla/5.0",
			},
			remoteAddr: "192.168.1.1:12345",
			trustProxy: false,
			expectedIP: "192.168.1.1",
			expectedUA: "Mozilla/5.0",
		},
		{
			name: "trusts first XFF entry when proxy trusted",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.1, 10.0.0.2",
				"User-Agent":      "curl/7.64.1",
			},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expectedIP: "203.0.113.1",
			expectedUA: "curl/7.64.1",
		},
		{
			name:       "falls back to RemoteAddr when no headers",
			headers:    map[string]string{"User-Agent": "test-agent"},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: true,
			expectedIP: "192.168.1.100",
			expectedUA: "test-agent",
		},
		{
			name:       "RemoteAddr without port",
			headers:    nil,
			remoteAddr: "192.168.1.7",
			trustProxy: false,
			expectedIP: "192.168.1.7",
			expectedUA: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var capturedCtx context.Context
			handler := Handler(tc.trustProxy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedCtx = r.Context()
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tc.remoteAddr
			req.Header.Del("User-Agent")
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tc.expectedIP, requestcontext.ClientIP(capturedCtx))
			assert.Equal(t, tc.expectedUA, requestcontext.UserAgent(capturedCtx))
		})
	}
}

func TestOversizedXFFIgnored(t *testing.T) {
	var capturedCtx context.Context
	handler := Handler(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedCtx = r.Context()
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	xff := make([]byte, MaxXFFHeaderLength+1)
	for i := range xff {
		xff[i] = 'a'
	}
	req.Header.Set("X-Forwarded-For", string(xff))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "10.0.0.1", requestcontext.ClientIP(capturedCtx))
}
