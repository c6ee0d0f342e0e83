package context

import (
	"context"
)

// Current carries per-request metadata captured at the edge of the router.
type Current struct {
	RequestID string
	ClientIP  string
	UserAgent string
	Method    string
	Path      string
}

type contextKey string

const currentKey contextKey = "current"

func NewContext(ctx context.Context, current *Current) context.Context {
	return context.WithValue(ctx, currentKey, current)
}

func FromContext(ctx context.Context) (*Current, bool) {
	current, ok := ctx.Value(currentKey).(*Current)

	return current, ok && current != nil
}

// RequestID returns the id stored in ctx, or "" outside a request.
func RequestID(ctx context.Context) string {
	if current, ok := FromContext(ctx); ok {
		return current.RequestID
	}

	return ""
}
