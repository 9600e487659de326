package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
)

var now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func newReport(title, content string, session time.Time) (*Report, error) {
	return NewReport(id.ReportID(uuid.New()), id.CounselRequestID(uuid.New()), id.InstitutionID(uuid.New()),
		id.UserID(uuid.New()), title, content, session, now)
}

func TestNewReport(t *testing.T) {
	session := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	r, err := newReport("  1회기 상담  ", "아이와 첫 만남을 가졌습니다.", session)
	require.NoError(t, err)
	assert.Equal(t, "1회기 상담", r.Title)
	assert.Empty(t, r.Attachments)

	cases := []struct {
		name    string
		title   string
		content string
		session time.Time
		msg     string
	}{
		{"blank title", "   ", "내용", session, "title is required"},
		{"long title", strings.Repeat("가", MaxTitleLength+1), "내용", session, "title must be at most 200 characters"},
		{"long content", "제목", strings.Repeat("a", MaxContentLength+1), session, "content must be at most 20000 characters"},
		{"missing date", "제목", "내용", time.Time{}, "sessionDate is required"},
		{"future date", "제목", "내용", now.Add(48 * time.Hour), "sessionDate cannot be in the future"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newReport(tc.title, tc.content, tc.session)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, tc.msg, dErrors.MessageOf(err))
		})
	}

	t.Run("institution required", func(t *testing.T) {
		_, err := NewReport(id.ReportID(uuid.New()), id.CounselRequestID(uuid.New()), id.InstitutionID{},
			id.UserID(uuid.New()), "제목", "내용", session, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestCheckAttachment(t *testing.T) {
	ext, err := CheckAttachment("application/pdf", 1024)
	require.NoError(t, err)
	assert.Equal(t, ".pdf", ext)

	_, err = CheckAttachment("image/jpeg", MaxAttachmentSize)
	assert.NoError(t, err)

	_, err = CheckAttachment("image/png", MaxAttachmentSize+1)
	assert.Equal(t, "file must be at most 10 MiB", dErrors.MessageOf(err))

	_, err = CheckAttachment("image/gif", 10)
	assert.Equal(t, "file type must be pdf, png or jpeg", dErrors.MessageOf(err))

	_, err = CheckAttachment("application/pdf", 0)
	assert.Equal(t, "file is empty", dErrors.MessageOf(err))
}

func TestParseSessionDate(t *testing.T) {
	d, err := ParseSessionDate("2026-10-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseSessionDate("10/01/2026")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestToResponseFormatsDate(t *testing.T) {
	r, err := newReport("제목", "내용", time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	r.Attachments = append(r.Attachments, Attachment{Key: "reports/x/y.pdf", FileName: "a.pdf", Size: 3})

	resp := ToResponse(r)
	assert.Equal(t, "2026-10-02", resp.SessionDate)
	require.Len(t, resp.Attachments, 1)
	assert.Equal(t, "a.pdf", resp.Attachments[0].FileName)
}
