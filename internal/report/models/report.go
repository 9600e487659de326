package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 20000

	MaxAttachmentSize = 10 << 20
	SessionDateLayout = "2006-01-02"
)

// AllowedContentTypes maps accepted attachment types to the extension used
// in object keys.
var AllowedContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
}

type Attachment struct {
	Key         string
	URL         string
	FileName    string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// Report is a session record written by the institution handling a counsel
// request.
type Report struct {
	ID               id.ReportID
	CounselRequestID id.CounselRequestID
	InstitutionID    id.InstitutionID
	AuthorID         id.UserID
	Title            string
	Content          string
	SessionDate      time.Time
	Attachments      []Attachment
	CreatedAt        time.Time
}

func NewReport(reportID id.ReportID, requestID id.CounselRequestID, institutionID id.InstitutionID, authorID id.UserID,
	title, content string, sessionDate, now time.Time) (*Report, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if err := checkLength("title", title, MaxTitleLength); err != nil {
		return nil, err
	}
	if err := checkLength("content", content, MaxContentLength); err != nil {
		return nil, err
	}
	if sessionDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "sessionDate is required")
	}
	if sessionDate.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "sessionDate cannot be in the future")
	}
	if institutionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "report requires a handling institution")
	}
	return &Report{
		ID:               reportID,
		CounselRequestID: requestID,
		InstitutionID:    institutionID,
		AuthorID:         authorID,
		Title:            title,
		Content:          content,
		SessionDate:      sessionDate,
		CreatedAt:        now,
	}, nil
}

func checkLength(field, v string, max int) error {
	n := utf8.RuneCountInString(v)
	if n == 0 {
		return dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if n > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return nil
}

// CheckAttachment validates an upload's declared size and sniffed type and
// returns the object key extension.
func CheckAttachment(contentType string, size int64) (string, error) {
	if size <= 0 {
		return "", dErrors.New(dErrors.CodeValidation, "file is empty")
	}
	if size > MaxAttachmentSize {
		return "", dErrors.New(dErrors.CodeValidation, "file must be at most 10 MiB")
	}
	ext, ok := AllowedContentTypes[contentType]
	if !ok {
		return "", dErrors.New(dErrors.CodeValidation, "file type must be pdf, png or jpeg")
	}
	return ext, nil
}

// ObjectKey places attachments under their report.
func ObjectKey(reportID id.ReportID, objectID, ext string) string {
	return fmt.Sprintf("reports/%s/%s%s", reportID, objectID, ext)
}
