// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	userID := requestcontext.UserID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithUserID(ctx, userID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "custodia/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	userIDKey      struct{}
	divisionIDKey  struct{}
	permissionsKey struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyUserID      = userIDKey{}
	ContextKeyDivisionID  = divisionIDKey{}
	ContextKeyPermissions = permissionsKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Auth context (user, division, permissions)
// -----------------------------------------------------------------------------

// UserID retrieves the authenticated user ID from the context.
// Returns zero if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(ContextKeyUserID).(id.UserID); ok {
		return userID
	}
	return 0
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// DivisionID retrieves the authenticated user's division from the context.
// Returns zero if not set.
func DivisionID(ctx context.Context) id.DivisionID {
	if divisionID, ok := ctx.Value(ContextKeyDivisionID).(id.DivisionID); ok {
		return divisionID
	}
	return 0
}

// WithDivisionID injects a division ID into the context.
func WithDivisionID(ctx context.Context, divisionID id.DivisionID) context.Context {
	return context.WithValue(ctx, ContextKeyDivisionID, divisionID)
}

// Permissions retrieves the resolved permission set from the context.
func Permissions(ctx context.Context) []string {
	if perms, ok := ctx.Value(ContextKeyPermissions).([]string); ok {
		return perms
	}
	return nil
}

// WithPermissions injects a resolved permission set into the context.
func WithPermissions(ctx context.Context, perms []string) context.Context {
	return context.WithValue(ctx, ContextKeyPermissions, perms)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

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

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Workers that need consistent time within a batch operation
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
