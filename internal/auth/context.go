// internal/auth/context.go
//
// Caller identity carried through request contexts.
//
// Usage
// -----
//
//	ctx = auth.WithCaller(ctx, auth.Caller{AccountID: 12, Role: "admin"})
//	c, ok := auth.FromContext(ctx)

package auth

import "context"

// Caller is an authenticated account and its role, as returned by the
// identity provider.
type Caller struct {
	AccountID int64
	Role      string
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool { return c.Role == "admin" }

// callerKey is unexported to avoid context-key collisions.
type callerKey struct{}

// WithCaller returns a context carrying c.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// FromContext returns the caller, or ok=false for anonymous requests.
func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	if !ok || c.AccountID == 0 {
		return Caller{}, false
	}
	return c, true
}

// AccountID is shorthand for FromContext(ctx).AccountID.
func AccountID(ctx context.Context) (int64, bool) {
	c, ok := FromContext(ctx)
	return c.AccountID, ok
}
