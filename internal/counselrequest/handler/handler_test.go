package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yeirin/internal/counselrequest/models"
	"yeirin/internal/platform/validation"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	"yeirin/pkg/testutil"
)

// fakeService records the last call and answers with a canned response.
type fakeService struct {
	lastMethod string
	lastID     id.CounselRequestID
	lastCreate models.CreateRequest
	lastSelect models.SelectRequest
	err        error
}

func (f *fakeService) reply(method string, requestID id.CounselRequestID, status models.Status) (*models.CounselRequestResponse, error) {
	f.lastMethod, f.lastID = method, requestID
	if f.err != nil {
		return nil, f.err
	}
	return &models.CounselRequestResponse{ID: requestID.String(), Status: status}, nil
}

func (f *fakeService) Create(_ context.Context, req models.CreateRequest) (*models.CounselRequestResponse, error) {
	f.lastCreate = req
	return f.reply("Create", id.CounselRequestID(uuid.New()), models.StatusPending)
}

func (f *fakeService) List(context.Context) (*models.ListResponse, error) {
	f.lastMethod = "List"
	return &models.ListResponse{CounselRequests: []models.CounselRequestResponse{}}, f.err
}

func (f *fakeService) Get(_ context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error) {
	return f.reply("Get", requestID, models.StatusPending)
}

func (f *fakeService) RequestRecommendations(_ context.Context, requestID id.CounselRequestID) (*models.RecommendationListResponse, error) {
	f.lastMethod, f.lastID = "RequestRecommendations", requestID
	if f.err != nil {
		return nil, f.err
	}
	return &models.RecommendationListResponse{CounselRequestID: requestID.String(), Status: models.StatusRecommended,
		Recommendations: []models.RecommendationResponse{{InstitutionID: "inst-1", Rank: 1, Score: 0.9}}}, nil
}

func (f *fakeService) ListRecommendations(_ context.Context, requestID id.CounselRequestID) (*models.RecommendationListResponse, error) {
	f.lastMethod, f.lastID = "ListRecommendations", requestID
	return &models.RecommendationListResponse{CounselRequestID: requestID.String()}, f.err
}

func (f *fakeService) Select(_ context.Context, requestID id.CounselRequestID, req models.SelectRequest) (*models.CounselRequestResponse, error) {
	f.lastSelect = req
	return f.reply("Select", requestID, models.StatusMatched)
}

func (f *fakeService) Accept(_ context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error) {
	return f.reply("Accept", requestID, models.StatusInProgress)
}

func (f *fakeService) Reject(_ context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error) {
	return f.reply("Reject", requestID, models.StatusRecommended)
}

func (f *fakeService) Complete(_ context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error) {
	return f.reply("Complete", requestID, models.StatusCompleted)
}

func (f *fakeService) Cancel(_ context.Context, requestID id.CounselRequestID) (*models.CounselRequestResponse, error) {
	return f.reply("Cancel", requestID, models.StatusCancelled)
}

func newRouter(svc Service) http.Handler {
	h := New(svc, validation.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterGuardian(r)
	h.RegisterRecommendations(r)
	h.RegisterStaff(r)
	return r
}

func TestCreate(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc)
	guardian := id.UserID(uuid.New())
	childID := uuid.NewString()

	req := testutil.AsGuardian(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/counsel-requests", map[string]string{
		"childId": childID, "requestText": "아이가 학교 생활을 힘들어해요",
	}), guardian)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	assert.Equal(t, childID, svc.lastCreate.ChildID)

	t.Run("missing child", func(t *testing.T) {
		req := testutil.AsGuardian(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/counsel-requests", map[string]string{
			"requestText": "아이가 학교 생활을 힘들어해요",
		}), guardian)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
		testutil.AssertErrorDescription(t, rr, "childId is required")
	})
}

func TestTransitionsRouteToService(t *testing.T) {
	requestID := id.CounselRequestID(uuid.New())
	cases := []struct {
		path   string
		method string
		status models.Status
	}{
		{"/cancel", "Cancel", models.StatusCancelled},
		{"/accept", "Accept", models.StatusInProgress},
		{"/reject", "Reject", models.StatusRecommended},
		{"/complete", "Complete", models.StatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.method, func(t *testing.T) {
			svc := &fakeService{}
			req := testutil.NewRequest(t, http.MethodPost, "/api/v1/counsel-requests/"+requestID.String()+tc.path)
			rr := testutil.DoRequest(newRouter(svc), req)

			testutil.AssertStatusOK(t, rr)
			assert.Equal(t, tc.method, svc.lastMethod)
			assert.Equal(t, requestID, svc.lastID)
			resp := testutil.UnmarshalResponse[models.CounselRequestResponse](t, rr)
			assert.Equal(t, tc.status, resp.Status)
		})
	}
}

func TestConflictSurfacesAs409(t *testing.T) {
	svc := &fakeService{err: dErrors.New(dErrors.CodeConflict, "cannot move counsel request from in_progress to cancelled")}
	req := testutil.NewRequest(t, http.MethodPost, "/api/v1/counsel-requests/"+uuid.NewString()+"/cancel")
	rr := testutil.DoRequest(newRouter(svc), req)
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
}

func TestSelectAndRecommendations(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc)
	requestID := uuid.NewString()

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/counsel-requests/"+requestID+"/recommendations", nil)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
	recs := testutil.UnmarshalResponse[models.RecommendationListResponse](t, rr)
	require.Len(t, recs.Recommendations, 1)
	assert.Equal(t, 1, recs.Recommendations[0].Rank)

	req = testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/counsel-requests/"+requestID+"/select", map[string]string{
		"institutionId": "inst-1",
	})
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, "inst-1", svc.lastSelect.InstitutionID)

	req = testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/counsel-requests/"+requestID+"/select", map[string]string{})
	testutil.AssertStatus(t, testutil.DoRequest(router, req), http.StatusBadRequest)
}

func TestBadRequestID(t *testing.T) {
	svc := &fakeService{}
	rr := testutil.DoRequest(newRouter(svc), testutil.NewRequest(t, http.MethodGet, "/api/v1/counsel-requests/not-a-uuid"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	assert.Empty(t, svc.lastMethod)
}
