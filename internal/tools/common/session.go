package common

import (
	"context"
)

type sessionContextKey struct{}

// WithSession returns a context carrying the caller's session ID.
// The HTTP transport sets this after resolving the Bearer token.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sessionID)
}

// SessionFromContext returns the session ID stored in the context, or "".
func SessionFromContext(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionContextKey{}).(string); ok {
		return sessionID
	}
	return ""
}

// GetSessionFromArgs extracts the session ID for a tool invocation.
//
// Priority order:
//  1. Session ID from context (set by the HTTP transport)
//  2. Explicit "session_id" argument in request
//  3. "default"
func GetSessionFromArgs(ctx context.Context, args map[string]interface{}) string {
	if sessionID := SessionFromContext(ctx); sessionID != "" {
		return sessionID
	}
	if sessionVal, ok := args["session_id"].(string); ok && sessionVal != "" {
		return sessionVal
	}
	return "default"
}
