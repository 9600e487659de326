package models

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
)

// User is a platform account. Institution staff always carry the institution
// they act for; guardians and admins never do.
type User struct {
	ID            id.UserID
	Email         string
	PasswordHash  string
	Name          string
	Phone         string
	Role          id.Role
	InstitutionID id.InstitutionID
	CreatedAt     time.Time
}

// NewUser normalizes the email and enforces the role/institution pairing.
func NewUser(email, passwordHash, name, phone string, role id.Role, institutionID id.InstitutionID, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "email must be a valid email")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid role")
	}
	if role.IsInstitutionStaff() && institutionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "institution_id is required for institution staff")
	}
	if !role.IsInstitutionStaff() && !institutionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "institution_id is only allowed for institution staff")
	}
	return &User{
		ID:            id.UserID(uuid.New()),
		Email:         email,
		PasswordHash:  passwordHash,
		Name:          name,
		Phone:         strings.TrimSpace(phone),
		Role:          role,
		InstitutionID: institutionID,
		CreatedAt:     now,
	}, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRequest is the body of POST /api/v1/auth/register. Admins are only
// created by bootstrap, never through this endpoint.
type RegisterRequest struct {
	Email         string `json:"email" validate:"required,email,max=254"`
	Password      string `json:"password" validate:"required,min=8,max=72"`
	Name          string `json:"name" validate:"required,min=1,max=50"`
	Phone         string `json:"phone" validate:"omitempty,max=20"`
	Role          string `json:"role" validate:"required,oneof=guardian institution counselor"`
	InstitutionID string `json:"institution_id" validate:"omitempty,uuid"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type UserResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone,omitempty"`
	Role          string    `json:"role"`
	InstitutionID string    `json:"institution_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func ToUserResponse(u *User) *UserResponse {
	resp := &UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role.String(),
		CreatedAt: u.CreatedAt,
	}
	if !u.InstitutionID.IsNil() {
		resp.InstitutionID = u.InstitutionID.String()
	}
	return resp
}
