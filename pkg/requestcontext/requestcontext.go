// Package requestcontext carries request-scoped values (request id, owner
// identity, client metadata, request time) across middleware, handlers, and
// services without leaking transport types into the domain layers.
package requestcontext

import (
	"context"
	"time"

	id "satsvault/pkg/domain"
)

type contextKey int

const (
	keyRequestID contextKey = iota
	keyOwnerID
	keyRequestTime
	keyClientIP
	keyUserAgent
)

// WithRequestID stores a request correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID retrieves the request correlation id, or "" when unset.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}

// WithOwnerID stores the authenticated owner identity.
func WithOwnerID(ctx context.Context, ownerID id.OwnerID) context.Context {
	return context.WithValue(ctx, keyOwnerID, ownerID)
}

// OwnerID retrieves the authenticated owner identity, or "" when unauthenticated.
func OwnerID(ctx context.Context) id.OwnerID {
	v, _ := ctx.Value(keyOwnerID).(id.OwnerID)
	return v
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Workers that need consistent time within a batch operation
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, keyRequestTime, t)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers and tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(keyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithClientMetadata stores the client IP and User-Agent extracted by middleware.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, keyClientIP, ip)
	return context.WithValue(ctx, keyUserAgent, userAgent)
}

// ClientIP retrieves the client IP, or "" when unset.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(keyClientIP).(string)
	return v
}

// UserAgent retrieves the raw User-Agent header, or "" when unset.
func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(keyUserAgent).(string)
	return v
}
