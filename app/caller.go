package app

import "context"

type callerIDKey struct{}

// WithCallerID attaches the authenticated user to ctx.
func WithCallerID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerIDKey{}, userID)
}

// CallerID returns the authenticated user, or "" for an anonymous caller.
func CallerID(ctx context.Context) string {
	userID, _ := ctx.Value(callerIDKey{}).(string)
	return userID
}
