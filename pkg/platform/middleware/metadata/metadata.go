package metadata

import (
	"net"
	"net/http"
	"strings"

	"satsvault/pkg/requestcontext"
)

// MaxXFFHeaderLength is the maximum allowed length for X-Forwarded-For header
// to prevent header injection.
const MaxXFFHeaderLength = 500

// Handler extracts client IP address and User-Agent from the request
// and adds them to the context for use by audit events and logging.
// X-Forwarded-For is only consulted when TrustProxy is set.
func Handler(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractClientIP(r, trustProxy)
			userAgent := r.Header.Get("User-Agent")

			ctx := requestcontext.WithClientMetadata(r.Context(), ip, userAgent)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractClientIP(r *http.Request, trustProxy bool) string {
	remoteIP := parseRemoteAddr(r.RemoteAddr)
	if remoteIP == "" {
		return "unknown"
	}

	if !trustProxy {
		return remoteIP
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" || len(xff) > MaxXFFHeaderLength {
		return remoteIP
	}

	// First entry is the originating client
	if first, _, found := strings.Cut(xff, ","); found || first != "" {
		return strings.TrimSpace(first)
	}
	return remoteIP
}

func parseRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// RemoteAddr without a port (e.g. in tests)
		return remoteAddr
	}
	return host
}
