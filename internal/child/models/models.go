package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

const (
	MaxNameLength  = 50
	MaxNotesLength = 2000
	MaxAgeYears    = 18
	DateLayout     = "2006-01-02"
)

// Child belongs to exactly one guardian; other guardians never see it.
type Child struct {
	ID         id.ChildID `json:"id"`
	GuardianID id.UserID  `json:"guardianId"`
	Name       string     `json:"name"`
	BirthDate  time.Time  `json:"-"`
	Gender     Gender     `json:"gender"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// NewChild enforces name and notes bounds and a birth date within the last
// 18 years.
func NewChild(childID id.ChildID, guardianID id.UserID, name string, birthDate time.Time, gender Gender, notes string, now time.Time) (*Child, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return nil, dErrors.New(dErrors.CodeValidation, "name must be between 1 and 50 characters")
	}
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return nil, dErrors.New(dErrors.CodeValidation, "notes must be at most 2000 characters")
	}
	if !gender.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "gender must be one of [male female other]")
	}
	birthDate = truncateDay(birthDate)
	today := truncateDay(now)
	if birthDate.After(today) {
		return nil, dErrors.New(dErrors.CodeValidation, "birthDate cannot be in the future")
	}
	if AgeOn(birthDate, today) > MaxAgeYears {
		return nil, dErrors.New(dErrors.CodeValidation, "child must be 18 years old or younger")
	}
	return &Child{
		ID:         childID,
		GuardianID: guardianID,
		Name:       name,
		BirthDate:  birthDate,
		Gender:     gender,
		Notes:      notes,
		CreatedAt:  now,
	}, nil
}

// AgeOn returns completed years between birth and day.
func AgeOn(birth, day time.Time) int {
	years := day.Year() - birth.Year()
	if day.Month() < birth.Month() || (day.Month() == birth.Month() && day.Day() < birth.Day()) {
		years--
	}
	return years
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type CreateChildRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=50"`
	BirthDate string `json:"birthDate" validate:"required,datetime=2006-01-02"`
	Gender    string `json:"gender" validate:"required,oneof=male female other"`
	Notes     string `json:"notes" validate:"max=2000"`
}

type ChildResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BirthDate string    `json:"birthDate"`
	Age       int       `json:"age"`
	Gender    string    `json:"gender"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func ToResponse(c *Child, now time.Time) ChildResponse {
	return ChildResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		BirthDate: c.BirthDate.Format(DateLayout),
		Age:       AgeOn(c.BirthDate, truncateDay(now)),
		Gender:    string(c.Gender),
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
	}
}

type ListResponse struct {
	Children []ChildResponse `json:"children"`
}
