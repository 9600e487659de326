package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	pkgstrings "yeirin/pkg/platform/strings"
)

// InstitutionType classifies counseling institutions.
type InstitutionType string

const (
	TypeCareFacility    InstitutionType = "care_facility"
	TypeCommunityCenter InstitutionType = "community_center"
	TypeSchoolWelfare   InstitutionType = "school_welfare"
)

func (t InstitutionType) IsValid() bool {
	switch t {
	case TypeCareFacility, TypeCommunityCenter, TypeSchoolWelfare:
		return true
	}
	return false
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// CanTransitionTo allows active ↔ inactive only.
func (s Status) CanTransitionTo(next Status) bool {
	return (s == StatusActive && next == StatusInactive) ||
		(s == StatusInactive && next == StatusActive)
}

const MaxNameLength = 128

// Institution is the tenant of the platform: a counseling provider guardians
// are matched with.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - Capacity is never negative
//   - ServiceTags are trimmed, lowercased and unique
//   - Status transitions: active ↔ inactive only
//   - AverageRating is the mean of ReviewCount ratings in [1, 5], or 0 with no reviews
//
// Deactivation does not cascade: staff tokens stay valid until expiry but the
// institution can no longer be selected nor gain staff.
type Institution struct {
	ID            id.InstitutionID `json:"id"`
	Name          string           `json:"name"`
	Type          InstitutionType  `json:"type"`
	Address       string           `json:"address"`
	Phone         string           `json:"phone"`
	Capacity      int              `json:"capacity"`
	ServiceTags   []string         `json:"service_tags"`
	Status        Status           `json:"status"`
	AverageRating float64          `json:"average_rating"`
	ReviewCount   int              `json:"review_count"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func NewInstitution(institutionID id.InstitutionID, name string, kind InstitutionType, address, phone string, capacity int, tags []string, now time.Time) (*Institution, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid institution type")
	}
	if capacity < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "capacity cannot be negative")
	}
	return &Institution{
		ID:          institutionID,
		Name:        name,
		Type:        kind,
		Address:     strings.TrimSpace(address),
		Phone:       strings.TrimSpace(phone),
		Capacity:    capacity,
		ServiceTags: pkgstrings.NormalizeTags(tags),
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func validateName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "institution name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "institution name must be 128 characters or less")
	}
	return nil
}

func (i *Institution) IsActive() bool {
	return i.Status == StatusActive
}

// CanDeactivate checks the active → inactive transition.
// Use with ApplyDeactivation in Execute callbacks.
func (i *Institution) CanDeactivate() error {
	if !i.Status.CanTransitionTo(StatusInactive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "institution is already inactive")
	}
	return nil
}

func (i *Institution) ApplyDeactivation(now time.Time) {
	i.Status = StatusInactive
	i.UpdatedAt = now
}

// CanReactivate checks the inactive → active transition.
func (i *Institution) CanReactivate() error {
	if !i.Status.CanTransitionTo(StatusActive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "institution is already active")
	}
	return nil
}

func (i *Institution) ApplyReactivation(now time.Time) {
	i.Status = StatusActive
	i.UpdatedAt = now
}

// Patch holds the optional fields of an update. Nil means unchanged.
type Patch struct {
	Name        *string
	Address     *string
	Phone       *string
	Capacity    *int
	ServiceTags *[]string
}

// CanApply validates a patch without mutating the institution.
func (i *Institution) CanApply(p Patch) error {
	if p.Name != nil {
		if err := validateName(strings.TrimSpace(*p.Name)); err != nil {
			return err
		}
	}
	if p.Capacity != nil && *p.Capacity < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "capacity cannot be negative")
	}
	return nil
}

// ApplyPatch mutates the institution. Call CanApply first.
func (i *Institution) ApplyPatch(p Patch, now time.Time) {
	if p.Name != nil {
		i.Name = strings.TrimSpace(*p.Name)
	}
	if p.Address != nil {
		i.Address = strings.TrimSpace(*p.Address)
	}
	if p.Phone != nil {
		i.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Capacity != nil {
		i.Capacity = *p.Capacity
	}
	if p.ServiceTags != nil {
		i.ServiceTags = pkgstrings.NormalizeTags(*p.ServiceTags)
	}
	i.UpdatedAt = now
}

// ApplyReview folds one rating into the running average.
func (i *Institution) ApplyReview(rating int, now time.Time) error {
	if rating < 1 || rating > 5 {
		return dErrors.New(dErrors.CodeInvariantViolation, "rating must be between 1 and 5")
	}
	total := i.AverageRating*float64(i.ReviewCount) + float64(rating)
	i.ReviewCount++
	i.AverageRating = total / float64(i.ReviewCount)
	i.UpdatedAt = now
	return nil
}
