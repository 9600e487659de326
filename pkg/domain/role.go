package domain

import dErrors "yeirin/pkg/domain-errors"

// Role is the platform role carried in access tokens.
type Role string

const (
	RoleGuardian    Role = "guardian"
	RoleInstitution Role = "institution"
	RoleCounselor   Role = "counselor"
	RoleAdmin       Role = "admin"
)

var validRoles = map[Role]bool{
	RoleGuardian:    true,
	RoleInstitution: true,
	RoleCounselor:   true,
	RoleAdmin:       true,
}

// ParseRole validates a role from external input.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

// IsInstitutionStaff reports whether the role acts on behalf of an institution.
func (r Role) IsInstitutionStaff() bool {
	return r == RoleInstitution || r == RoleCounselor
}

func (r Role) String() string {
	return string(r)
}
