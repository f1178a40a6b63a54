package context

import "context"

type contextKey string

const (
	requestIDKey contextKey = "observability_request_id"
	identityKey  contextKey = "observability_identity"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithIdentity records the caller identity (email) for request-scoped logs.
func WithIdentity(ctx context.Context, identity string) context.Context {
	if ctx == nil || identity == "" {
		return ctx
	}
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(identityKey).(string)
	return value
}
