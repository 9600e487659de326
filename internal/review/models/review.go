package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
)

const MaxCommentLength = 1000

// Review is a guardian's rating of an institution after a completed counsel
// request. At most one review exists per request.
type Review struct {
	ID               id.ReviewID
	InstitutionID    id.InstitutionID
	CounselRequestID id.CounselRequestID
	GuardianID       id.UserID
	Rating           int
	Comment          string
	CreatedAt        time.Time
}

func NewReview(reviewID id.ReviewID, institutionID id.InstitutionID, requestID id.CounselRequestID, guardianID id.UserID,
	rating int, comment string, now time.Time) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, dErrors.New(dErrors.CodeValidation, "rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return nil, dErrors.New(dErrors.CodeValidation, "comment must be at most 1000 characters")
	}
	return &Review{
		ID:               reviewID,
		InstitutionID:    institutionID,
		CounselRequestID: requestID,
		GuardianID:       guardianID,
		Rating:           rating,
		Comment:          comment,
		CreatedAt:        now,
	}, nil
}

type CreateRequest struct {
	CounselRequestID string `json:"counselRequestId" validate:"required,uuid"`
	Rating           int    `json:"rating" validate:"required,min=1,max=5"`
	Comment          string `json:"comment" validate:"max=1000"`
}

type ReviewResponse struct {
	ID               string    `json:"id"`
	InstitutionID    string    `json:"institutionId"`
	CounselRequestID string    `json:"counselRequestId"`
	Rating           int       `json:"rating"`
	Comment          string    `json:"comment"`
	CreatedAt        time.Time `json:"createdAt"`
}

type ListResponse struct {
	Reviews []ReviewResponse `json:"reviews"`
}

// ToResponse leaves out the guardian; reviews are shown publicly.
func ToResponse(r *Review) *ReviewResponse {
	return &ReviewResponse{
		ID:               r.ID.String(),
		InstitutionID:    r.InstitutionID.String(),
		CounselRequestID: r.CounselRequestID.String(),
		Rating:           r.Rating,
		Comment:          r.Comment,
		CreatedAt:        r.CreatedAt,
	}
}

func ToListResponse(reviews []*Review) *ListResponse {
	out := make([]ReviewResponse, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, *ToResponse(r))
	}
	return &ListResponse{Reviews: out}
}
