package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	crmodels "yeirin/internal/counselrequest/models"
	instmodels "yeirin/internal/institution/models"
	instservice "yeirin/internal/institution/service"
	inststore "yeirin/internal/institution/store"
	"yeirin/internal/review/models"
	"yeirin/internal/review/store"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/requestcontext"
	"yeirin/pkg/testutil"
)

type stubRequests struct {
	byID map[id.CounselRequestID]*crmodels.CounselRequest
}

func (s *stubRequests) Visible(ctx context.Context, requestID id.CounselRequestID) (*crmodels.CounselRequest, error) {
	c, ok := s.byID[requestID]
	if !ok || c.GuardianID != requestcontext.UserID(ctx) {
		return nil, dErrors.New(dErrors.CodeNotFound, "counsel request not found")
	}
	copied := *c
	return &copied, nil
}

type failingRatings struct{}

func (failingRatings) ApplyReview(context.Context, id.InstitutionID, int) error {
	return errors.New("institution store unavailable")
}

type ReviewServiceSuite struct {
	suite.Suite
	svc          *Service
	store        *store.InMemory
	institutions *instservice.Service
	requests     *stubRequests
	recorder     *testutil.AuditRecorder

	guardian id.UserID
	inst     *instmodels.Institution
	request  *crmodels.CounselRequest
	now      time.Time
}

func TestReviewServiceSuite(t *testing.T) {
	suite.Run(t, new(ReviewServiceSuite))
}

func (s *ReviewServiceSuite) SetupTest() {
	s.now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	s.guardian = id.UserID(uuid.New())

	instStore := inststore.NewInMemory()
	inst, err := instmodels.NewInstitution(id.InstitutionID(uuid.New()), "마음숲 상담센터", instmodels.TypeCommunityCenter,
		"Seoul", "02-000-0000", 10, nil, s.now)
	s.Require().NoError(err)
	s.Require().NoError(instStore.CreateIfNameAvailable(context.Background(), inst))
	s.inst = inst
	s.institutions = instservice.New(instStore)

	req, err := crmodels.NewCounselRequest(id.CounselRequestID(uuid.New()), s.guardian, id.ChildID(uuid.New()),
		"아이의 분노 조절 문제로 상담을 원합니다", s.now.Add(-30*24*time.Hour))
	s.Require().NoError(err)
	req.Status = crmodels.StatusCompleted
	req.SelectedInstitutionID = inst.ID
	s.request = req
	s.requests = &stubRequests{byID: map[id.CounselRequestID]*crmodels.CounselRequest{req.ID: req}}

	s.store = store.NewInMemory()
	s.recorder = &testutil.AuditRecorder{}
	s.svc, err = New(s.store, s.requests, s.institutions, WithAuditPublisher(s.recorder))
	s.Require().NoError(err)
}

func (s *ReviewServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(testutil.GuardianContext(s.guardian), s.now)
}

func (s *ReviewServiceSuite) create(rating int) (*models.ReviewResponse, error) {
	return s.svc.Create(s.ctx(), s.inst.ID, models.CreateRequest{
		CounselRequestID: s.request.ID.String(), Rating: rating, Comment: "큰 도움이 되었습니다",
	})
}

func (s *ReviewServiceSuite) TestCreateUpdatesRating() {
	resp, err := s.create(4)
	s.Require().NoError(err)
	s.Equal(4, resp.Rating)

	inst, err := s.institutions.GetInstitution(context.Background(), s.inst.ID)
	s.Require().NoError(err)
	s.Equal(1, inst.ReviewCount)
	s.InDelta(4.0, inst.AverageRating, 0.0001)
	s.Equal([]string{string(audit.EventReviewCreated)}, s.recorder.Actions())

	list, err := s.svc.List(context.Background(), s.inst.ID)
	s.Require().NoError(err)
	s.Len(list.Reviews, 1)
}

func (s *ReviewServiceSuite) TestOneReviewPerRequest() {
	_, err := s.create(5)
	s.Require().NoError(err)
	_, err = s.create(1)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal("review already submitted for this counsel request", dErrors.MessageOf(err))

	inst, err := s.institutions.GetInstitution(context.Background(), s.inst.ID)
	s.Require().NoError(err)
	s.Equal(1, inst.ReviewCount, "duplicate does not move the average")
	s.InDelta(5.0, inst.AverageRating, 0.0001)
}

func (s *ReviewServiceSuite) TestEligibility() {
	s.Run("request not completed", func() {
		s.request.Status = crmodels.StatusInProgress
		defer func() { s.request.Status = crmodels.StatusCompleted }()
		_, err := s.create(3)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
	s.Run("different institution", func() {
		_, err := s.svc.Create(s.ctx(), id.InstitutionID(uuid.New()), models.CreateRequest{
			CounselRequestID: s.request.ID.String(), Rating: 3,
		})
		s.Equal("counsel request was not completed with this institution", dErrors.MessageOf(err))
	})
	s.Run("someone else's request", func() {
		other := requestcontext.WithTime(testutil.GuardianContext(id.UserID(uuid.New())), s.now)
		_, err := s.svc.Create(other, s.inst.ID, models.CreateRequest{CounselRequestID: s.request.ID.String(), Rating: 3})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
	s.Run("staff cannot review", func() {
		staff := testutil.StaffContext(id.UserID(uuid.New()), s.inst.ID)
		_, err := s.svc.Create(staff, s.inst.ID, models.CreateRequest{CounselRequestID: s.request.ID.String(), Rating: 3})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
	s.Run("rating out of range", func() {
		_, err := s.create(6)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ReviewServiceSuite) TestFailedRatingUndoesReview() {
	svc, err := New(s.store, s.requests, failingRatings{})
	s.Require().NoError(err)

	_, err = svc.Create(s.ctx(), s.inst.ID, models.CreateRequest{CounselRequestID: s.request.ID.String(), Rating: 2})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	list, err := s.store.ListByInstitution(context.Background(), s.inst.ID)
	s.Require().NoError(err)
	s.Empty(list)

	_, err = s.create(2)
	s.NoError(err, "the request can still be reviewed")
}
