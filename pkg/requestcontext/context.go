// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Transport middleware sets these values; the EPP controller and flow runner read them
// for logging and activity records without importing net/http.
//
//	registrarID := requestcontext.RegistrarID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Tests that bypass the HTTP middleware inject values directly:
//
//	ctx = requestcontext.WithRegistrarID(ctx, "TheRegistrar")
package requestcontext

import "context"

type (
	registrarIDKey struct{}
	clientIPKey    struct{}
	requestIDKey   struct{}
)

var (
	ContextKeyRegistrarID = registrarIDKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyRequestID   = requestIDKey{}
)

// RegistrarID retrieves the authenticated registrar from the context.
// Returns "" when the request is not logged in.
func RegistrarID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRegistrarID).(string); ok {
		return id
	}
	return ""
}

// WithRegistrarID injects the authenticated registrar into the context.
func WithRegistrarID(ctx context.Context, registrarID string) context.Context {
	return context.WithValue(ctx, ContextKeyRegistrarID, registrarID)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects the client IP address into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextKeyClientIP, ip)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}
