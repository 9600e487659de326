package models

import (
	"time"

	dErrors "yeirin/pkg/domain-errors"
)

type CreateRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Content     string `json:"content" validate:"required,max=20000"`
	SessionDate string `json:"sessionDate" validate:"required"`
}

// ParseSessionDate reads a calendar date in UTC.
func ParseSessionDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(SessionDateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "sessionDate must be formatted as YYYY-MM-DD")
	}
	return t, nil
}

type AttachmentResponse struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ReportResponse struct {
	ID               string               `json:"id"`
	CounselRequestID string               `json:"counselRequestId"`
	InstitutionID    string               `json:"institutionId"`
	AuthorID         string               `json:"authorId"`
	Title            string               `json:"title"`
	Content          string               `json:"content"`
	SessionDate      string               `json:"sessionDate"`
	Attachments      []AttachmentResponse `json:"attachments"`
	CreatedAt        time.Time            `json:"createdAt"`
}

type ListResponse struct {
	Reports []ReportResponse `json:"reports"`
}

func ToResponse(r *Report) *ReportResponse {
	attachments := make([]AttachmentResponse, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		attachments = append(attachments, AttachmentResponse{
			Key:         a.Key,
			URL:         a.URL,
			FileName:    a.FileName,
			ContentType: a.ContentType,
			Size:        a.Size,
			CreatedAt:   a.CreatedAt,
		})
	}
	return &ReportResponse{
		ID:               r.ID.String(),
		CounselRequestID: r.CounselRequestID.String(),
		InstitutionID:    r.InstitutionID.String(),
		AuthorID:         r.AuthorID.String(),
		Title:            r.Title,
		Content:          r.Content,
		SessionDate:      r.SessionDate.Format(SessionDateLayout),
		Attachments:      attachments,
		CreatedAt:        r.CreatedAt,
	}
}

func ToListResponse(reports []*Report) *ListResponse {
	out := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, *ToResponse(r))
	}
	return &ListResponse{Reports: out}
}
