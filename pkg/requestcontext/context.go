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
//	role := requestcontext.Role(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithPrincipal(ctx, guardianID, id.RoleGuardian, id.InstitutionID{})
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "yeirin/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	userIDKey        struct{}
	roleKey          struct{}
	institutionIDKey struct{}
	tokenIDKey       struct{}
	clientIPKey      struct{}
	userAgentKey     struct{}
	requestIDKey     struct{}
	requestTimeKey   struct{}
)

// -----------------------------------------------------------------------------
// Principal (user, role, institution)
// -----------------------------------------------------------------------------

// UserID retrieves the authenticated user ID from the context.
// Returns the zero value (nil UUID) if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// Role retrieves the authenticated user's role, or "" when unauthenticated.
func Role(ctx context.Context) id.Role {
	if role, ok := ctx.Value(roleKey{}).(id.Role); ok {
		return role
	}
	return ""
}

// InstitutionID retrieves the institution the principal acts for.
// Only set for institution staff.
func InstitutionID(ctx context.Context) id.InstitutionID {
	if instID, ok := ctx.Value(institutionIDKey{}).(id.InstitutionID); ok {
		return instID
	}
	return id.InstitutionID{}
}

// WithPrincipal injects the authenticated principal into the context.
func WithPrincipal(ctx context.Context, userID id.UserID, role id.Role, institutionID id.InstitutionID) context.Context {
	ctx = context.WithValue(ctx, userIDKey{}, userID)
	ctx = context.WithValue(ctx, roleKey{}, role)
	ctx = context.WithValue(ctx, institutionIDKey{}, institutionID)
	return ctx
}

// TokenID retrieves the access token's jti.
func TokenID(ctx context.Context) string {
	if jti, ok := ctx.Value(tokenIDKey{}).(string); ok {
		return jti
	}
	return ""
}

// WithTokenID injects the access token's jti.
func WithTokenID(ctx context.Context, jti string) context.Context {
	return context.WithValue(ctx, tokenIDKey{}, jti)
}

// -----------------------------------------------------------------------------
// Client metadata (IP, User-Agent)
// -----------------------------------------------------------------------------

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	ctx = context.WithValue(ctx, userAgentKey{}, userAgent)
	return ctx
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers and tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
