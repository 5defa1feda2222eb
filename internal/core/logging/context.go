package logging

import "context"

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	documentKey  contextKey = "document"
)

// WithSessionID tags the context with the edit session it belongs to.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithDocument tags the context with the PHY document path being worked on.
func WithDocument(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, documentKey, path)
}

// GetSessionID returns the session ID from ctx, or "" when absent.
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// GetDocument returns the document path from ctx, or "" when absent.
func GetDocument(ctx context.Context) string {
	if p, ok := ctx.Value(documentKey).(string); ok {
		return p
	}
	return ""
}
