// Package domain holds the typed identifiers and small value types shared by
// every module. IDs are distinct named types over uuid.UUID so a ChildID can
// never be passed where a GuardianID is expected.
package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "yeirin/pkg/domain-errors"
)

type (
	UserID           uuid.UUID
	InstitutionID    uuid.UUID
	ChildID          uuid.UUID
	CounselRequestID uuid.UUID
	RecommendationID uuid.UUID
	ConsentID        uuid.UUID
	ReportID         uuid.UUID
	ReviewID         uuid.UUID
	MessageID        uuid.UUID
)

// maxIDLength bounds input before it reaches uuid.Parse. The longest accepted
// form is the braced/URN variant (45 bytes).
const maxIDLength = 64

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" || strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	if len(s) > maxIDLength || !utf8.ValidString(s) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func ParseInstitutionID(s string) (InstitutionID, error) {
	u, err := parseUUID(s, "institution_id")
	return InstitutionID(u), err
}

func ParseChildID(s string) (ChildID, error) {
	u, err := parseUUID(s, "child_id")
	return ChildID(u), err
}

func ParseCounselRequestID(s string) (CounselRequestID, error) {
	u, err := parseUUID(s, "counsel_request_id")
	return CounselRequestID(u), err
}

func ParseConsentID(s string) (ConsentID, error) {
	u, err := parseUUID(s, "consent_id")
	return ConsentID(u), err
}

func ParseReportID(s string) (ReportID, error) {
	u, err := parseUUID(s, "report_id")
	return ReportID(u), err
}

func ParseReviewID(s string) (ReviewID, error) {
	u, err := parseUUID(s, "review_id")
	return ReviewID(u), err
}

func ParseMessageID(s string) (MessageID, error) {
	u, err := parseUUID(s, "message_id")
	return MessageID(u), err
}

func (id UserID) String() string           { return uuid.UUID(id).String() }
func (id InstitutionID) String() string    { return uuid.UUID(id).String() }
func (id ChildID) String() string          { return uuid.UUID(id).String() }
func (id CounselRequestID) String() string { return uuid.UUID(id).String() }
func (id RecommendationID) String() string { return uuid.UUID(id).String() }
func (id ConsentID) String() string        { return uuid.UUID(id).String() }
func (id ReportID) String() string         { return uuid.UUID(id).String() }
func (id ReviewID) String() string         { return uuid.UUID(id).String() }
func (id MessageID) String() string        { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id InstitutionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ChildID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id CounselRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ConsentID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ReportID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ReviewID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id MessageID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs serialize as plain UUID strings in JSON.
func (id UserID) MarshalText() ([]byte, error)           { return uuid.UUID(id).MarshalText() }
func (id InstitutionID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id ChildID) MarshalText() ([]byte, error)          { return uuid.UUID(id).MarshalText() }
func (id CounselRequestID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id RecommendationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ConsentID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id ReportID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id ReviewID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id MessageID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }

// UnmarshalText accepts the canonical UUID string form.
func (id *UserID) UnmarshalText(b []byte) error           { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *InstitutionID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ChildID) UnmarshalText(b []byte) error          { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CounselRequestID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RecommendationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ConsentID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ReportID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ReviewID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *MessageID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
