package auth

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey int

const (
	// identityKey is the context key for storing authenticated user identity.
	identityKey contextKey = iota
)

// WithIdentity returns a new context with the given user identity.
// Callers set it before compiling so visibility callbacks and audit logs
// can attribute the request.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the authenticated user identity from context.
// Returns empty string if no identity is set (unauthenticated request).
func IdentityFromContext(ctx context.Context) string {
	identity, ok := ctx.Value(identityKey).(string)
	if !ok {
		return ""
	}
	return identity
}
