package testutil

import (
	"context"
	"net/http"
	"time"

	id "yeirin/pkg/domain"
	"yeirin/pkg/requestcontext"
)

// AsGuardian attaches a guardian principal to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func AsGuardian(req *http.Request, userID id.UserID) *http.Request {
	return WithPrincipal(req, userID, id.RoleGuardian, id.InstitutionID{})
}

// AsStaff attaches an institution-staff principal acting for institutionID.
func AsStaff(req *http.Request, userID id.UserID, institutionID id.InstitutionID) *http.Request {
	return WithPrincipal(req, userID, id.RoleCounselor, institutionID)
}

// AsAdmin attaches an admin principal.
func AsAdmin(req *http.Request, userID id.UserID) *http.Request {
	return WithPrincipal(req, userID, id.RoleAdmin, id.InstitutionID{})
}

// WithPrincipal attaches an arbitrary principal to the request context.
func WithPrincipal(req *http.Request, userID id.UserID, role id.Role, institutionID id.InstitutionID) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), userID, role, institutionID)
	return req.WithContext(ctx)
}

// WithTime pins the request-scoped clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// GuardianContext returns a background context carrying a guardian principal,
// for service-level tests.
func GuardianContext(userID id.UserID) context.Context {
	return requestcontext.WithPrincipal(context.Background(), userID, id.RoleGuardian, id.InstitutionID{})
}

// StaffContext returns a background context carrying an institution-staff principal.
func StaffContext(userID id.UserID, institutionID id.InstitutionID) context.Context {
	return requestcontext.WithPrincipal(context.Background(), userID, id.RoleCounselor, institutionID)
}

// AdminContext returns a background context carrying an admin principal.
func AdminContext(userID id.UserID) context.Context {
	return requestcontext.WithPrincipal(context.Background(), userID, id.RoleAdmin, id.InstitutionID{})
}
