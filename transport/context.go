package transport

import "context"

type retriedContextKey struct{}

// withRetried marks a request context as already replayed after a refresh. A
// request carrying the marker that fails with 401 again is never re-queued; its
// failure propagates to the caller as-is.
func withRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedContextKey{}, true)
}

func retriedFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	retried, _ := ctx.Value(retriedContextKey{}).(bool)
	return retried
}
