package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"yeirin/internal/consent/handler/mocks"
	"yeirin/internal/consent/models"
	"yeirin/internal/platform/validation"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	"yeirin/pkg/testutil"
)

type ConsentHandlerSuite struct {
	suite.Suite
	service  *mocks.MockService
	router   http.Handler
	guardian id.UserID
	childID  string
}

func TestConsentHandlerSuite(t *testing.T) {
	suite.Run(t, new(ConsentHandlerSuite))
}

func (s *ConsentHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	h := New(s.service, validation.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
	s.guardian = id.UserID(uuid.New())
	s.childID = uuid.NewString()
}

func (s *ConsentHandlerSuite) TestGrantTrimsAndLowercasesPurposes() {
	granted := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	s.service.EXPECT().Grant(gomock.Any(), models.GrantRequest{
		ChildID:  s.childID,
		Purposes: []string{"counsel_matching"},
	}).Return(&models.ListResponse{Consents: []models.ConsentResponse{{
		ID: uuid.NewString(), ChildID: s.childID, Purpose: "counsel_matching",
		Status: models.StatusActive, GrantedAt: granted, ExpiresAt: granted.Add(365 * 24 * time.Hour),
	}}}, nil)

	req := testutil.AsGuardian(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/consents", map[string]any{
		"childId": " " + s.childID + " ", "purposes": []string{" Counsel_Matching "},
	}), s.guardian)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[models.ListResponse](s.T(), rr)
	s.Require().Len(resp.Consents, 1)
	s.Equal(models.StatusActive, resp.Consents[0].Status)
}

func (s *ConsentHandlerSuite) TestGrantValidation() {
	s.Run("empty purposes", func() {
		req := testutil.AsGuardian(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/consents", map[string]any{
			"childId": s.childID, "purposes": []string{},
		}), s.guardian)
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest, "validation_error")
	})

	s.Run("unknown field", func() {
		req := testutil.AsGuardian(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/consents", map[string]any{
			"childId": s.childID, "purposes": []string{"counsel_matching"}, "forever": true,
		}), s.guardian)
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest)
	})

	s.Run("service rejects purpose", func() {
		s.service.EXPECT().Grant(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeBadRequest, "invalid purpose: marketing"))
		req := testutil.AsGuardian(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/consents", map[string]any{
			"childId": s.childID, "purposes": []string{"marketing"},
		}), s.guardian)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorDescription(s.T(), rr, "invalid purpose: marketing")
	})
}

func (s *ConsentHandlerSuite) TestRevoke() {
	s.service.EXPECT().Revoke(gomock.Any(), models.RevokeRequest{
		ChildID: s.childID, Purposes: []string{"sms_notification"},
	}).Return(&models.ListResponse{Consents: []models.ConsentResponse{}}, nil)

	req := testutil.AsGuardian(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/consents/revoke", map[string]any{
		"childId": s.childID, "purposes": []string{"sms_notification"},
	}), s.guardian)
	testutil.AssertStatusOK(s.T(), testutil.DoRequest(s.router, req))
}

func (s *ConsentHandlerSuite) TestList() {
	s.Run("requires childId", func() {
		req := testutil.AsGuardian(testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/consents"), s.guardian)
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest, "bad_request")
	})

	s.Run("not found passes through", func() {
		s.service.EXPECT().List(gomock.Any(), s.childID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "child not found"))
		req := testutil.AsGuardian(testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/consents?childId="+s.childID), s.guardian)
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusNotFound, "not_found")
	})
}
