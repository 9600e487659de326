package models

import (
	"time"

	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
)

// Status is derived from timestamps and never stored.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// Consent captures a guardian's decision for one child and one purpose.
// At most one record exists per (guardian, child, purpose); re-granting renews it.
type Consent struct {
	ID         id.ConsentID
	GuardianID id.UserID
	ChildID    id.ChildID
	Purpose    id.ConsentPurpose
	GrantedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
}

// NewConsent creates an active grant valid for ttl.
func NewConsent(consentID id.ConsentID, guardianID id.UserID, childID id.ChildID, purpose id.ConsentPurpose, now time.Time, ttl time.Duration) (*Consent, error) {
	if !purpose.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid purpose")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent ttl must be positive")
	}
	if guardianID.IsNil() || childID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent requires guardian and child")
	}
	return &Consent{
		ID:         consentID,
		GuardianID: guardianID,
		ChildID:    childID,
		Purpose:    purpose,
		GrantedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// IsActive reports whether the consent is neither revoked nor expired at now.
func (c Consent) IsActive(now time.Time) bool {
	if c.RevokedAt != nil && !c.RevokedAt.After(now) {
		return false
	}
	return now.Before(c.ExpiresAt)
}

func (c Consent) StatusAt(now time.Time) Status {
	switch {
	case c.RevokedAt != nil && !c.RevokedAt.After(now):
		return StatusRevoked
	case !now.Before(c.ExpiresAt):
		return StatusExpired
	default:
		return StatusActive
	}
}

// Renew restarts the validity window and clears any revocation.
func (c *Consent) Renew(now time.Time, ttl time.Duration) {
	c.GrantedAt = now
	c.ExpiresAt = now.Add(ttl)
	c.RevokedAt = nil
}

// Revoke marks the consent revoked. Revoking an inactive consent is a no-op
// and reports false.
func (c *Consent) Revoke(now time.Time) bool {
	if !c.IsActive(now) {
		return false
	}
	c.RevokedAt = &now
	return true
}

// EnsureConsent enforces that an active consent exists for purpose.
func EnsureConsent(consents []*Consent, purpose id.ConsentPurpose, now time.Time) error {
	for _, c := range consents {
		if c.Purpose == purpose && c.IsActive(now) {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeMissingConsent, "consent not granted for required purpose")
}
