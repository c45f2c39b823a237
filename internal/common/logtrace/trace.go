package logtrace

import (
	"context"
)

type requestIdContextKey struct{}

// WithRequestId returns a copy of ctx carrying the request id.
func WithRequestId(ctx context.Context, requestId string) context.Context {
	return context.WithValue(ctx, requestIdContextKey{}, requestId)
}

// RequestIdFromContext extracts the request ID from the context.
// Returns an empty string if the context is nil or if no request ID is found.
func RequestIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(requestIdContextKey{}).(string)
	if !ok {
		return ""
	}
	return r
}

// IsTraceEnabled reports whether route tracing output is requested through
// SESSIONACTIONS_TRACE.
func IsTraceEnabled() bool {
	return traceEnabled
}

var traceEnabled bool

// SetTraceEnabled toggles route tracing.
func SetTraceEnabled(enabled bool) {
	traceEnabled = enabled
}
