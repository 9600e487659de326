package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"yeirin/internal/report/models"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
)

type InMemoryReportStoreSuite struct {
	suite.Suite
	store     *InMemory
	ctx       context.Context
	requestID id.CounselRequestID
	now       time.Time
}

func TestInMemoryReportStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryReportStoreSuite))
}

func (s *InMemoryReportStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.requestID = id.CounselRequestID(uuid.New())
	s.now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryReportStoreSuite) create(session time.Time) *models.Report {
	r, err := models.NewReport(id.ReportID(uuid.New()), s.requestID, id.InstitutionID(uuid.New()),
		id.UserID(uuid.New()), "회기 기록", "내용", session, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, r))
	return r
}

func (s *InMemoryReportStoreSuite) TestListOrdersBySessionDate() {
	second := s.create(s.now.AddDate(0, 0, -1))
	first := s.create(s.now.AddDate(0, 0, -7))
	s.create(s.now.AddDate(0, 0, -3))

	list, err := s.store.ListByCounselRequest(s.ctx, s.requestID)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal(first.ID, list[0].ID)
	s.Equal(second.ID, list[2].ID)
}

func (s *InMemoryReportStoreSuite) TestAttachments() {
	r := s.create(s.now)
	att := models.Attachment{Key: "reports/a/b.pdf", URL: "https://cdn/b.pdf", FileName: "b.pdf", ContentType: "application/pdf", Size: 10, CreatedAt: s.now}

	s.Require().NoError(s.store.AddAttachment(s.ctx, r.ID, att))
	err := s.store.AddAttachment(s.ctx, r.ID, att)
	s.True(errors.Is(err, sentinel.ErrConflict))
	err = s.store.AddAttachment(s.ctx, id.ReportID(uuid.New()), att)
	s.True(errors.Is(err, sentinel.ErrNotFound))

	found, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Require().Len(found.Attachments, 1)

	found.Attachments[0].FileName = "changed"
	again, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal("b.pdf", again.Attachments[0].FileName)
}

func (s *InMemoryReportStoreSuite) TestCreateDuplicate() {
	r := s.create(s.now)
	s.True(errors.Is(s.store.Create(s.ctx, r), sentinel.ErrConflict))
	_, err := s.store.FindByID(s.ctx, id.ReportID(uuid.New()))
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
