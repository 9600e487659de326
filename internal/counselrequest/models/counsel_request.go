package models

import (
	"fmt"
	"time"

	"yeirin/internal/matching/domain"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusRecommended Status = "recommended"
	StatusMatched     Status = "matched"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
)

// transitions lists the statuses reachable from each status. Completed and
// cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:     {StatusRecommended, StatusCancelled},
	StatusRecommended: {StatusRecommended, StatusMatched, StatusCancelled},
	StatusMatched:     {StatusInProgress, StatusRecommended, StatusCancelled},
	StatusInProgress:  {StatusCompleted},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRecommended, StatusMatched, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CounselRequest is a guardian's request for counseling on behalf of a child.
// SelectedInstitutionID is set only while matched, in progress or completed.
type CounselRequest struct {
	ID                    id.CounselRequestID
	GuardianID            id.UserID
	ChildID               id.ChildID
	Text                  string
	Status                Status
	SelectedInstitutionID id.InstitutionID
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewCounselRequest applies the same text rules as the matching use case.
func NewCounselRequest(requestID id.CounselRequestID, guardianID id.UserID, childID id.ChildID, rawText string, now time.Time) (*CounselRequest, error) {
	text := domain.NewCounselRequestText(rawText)
	if text.IsFail() {
		return nil, dErrors.New(dErrors.CodeValidation, text.Err().Error())
	}
	if guardianID.IsNil() || childID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "counsel request requires guardian and child")
	}
	return &CounselRequest{
		ID:         requestID,
		GuardianID: guardianID,
		ChildID:    childID,
		Text:       text.Value().Value(),
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// HasSelection reports whether an institution is attached to the request.
func (c *CounselRequest) HasSelection() bool {
	return !c.SelectedInstitutionID.IsNil()
}

// CanMoveTo returns a conflict error naming both statuses when the move is
// not allowed.
func (c *CounselRequest) CanMoveTo(next Status) error {
	if !c.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("cannot move counsel request from %s to %s", c.Status, next))
	}
	return nil
}

// CanRequestRecommendations allows a first request and refreshes before a
// match. A matched request goes back to recommended only through a reject.
func (c *CounselRequest) CanRequestRecommendations() error {
	if c.Status != StatusPending && c.Status != StatusRecommended {
		return dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("cannot request recommendations while %s", c.Status))
	}
	return nil
}

func (c *CounselRequest) MarkRecommended(now time.Time) {
	c.Status = StatusRecommended
	c.UpdatedAt = now
}

func (c *CounselRequest) Select(institutionID id.InstitutionID, now time.Time) {
	c.Status = StatusMatched
	c.SelectedInstitutionID = institutionID
	c.UpdatedAt = now
}

func (c *CounselRequest) Accept(now time.Time) {
	c.Status = StatusInProgress
	c.UpdatedAt = now
}

// Reject returns the request to the guardian's recommendation list.
func (c *CounselRequest) Reject(now time.Time) {
	c.Status = StatusRecommended
	c.SelectedInstitutionID = id.InstitutionID{}
	c.UpdatedAt = now
}

func (c *CounselRequest) Complete(now time.Time) {
	c.Status = StatusCompleted
	c.UpdatedAt = now
}

func (c *CounselRequest) Cancel(now time.Time) {
	c.Status = StatusCancelled
	c.UpdatedAt = now
}
