package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"yeirin/internal/child/models"
	"yeirin/internal/child/service"
	"yeirin/internal/child/store"
	"yeirin/internal/platform/validation"
	id "yeirin/pkg/domain"
	"yeirin/pkg/testutil"
)

func newRouter() http.Handler {
	h := New(service.New(store.NewInMemory()), validation.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func TestChildHandlers(t *testing.T) {
	router := newRouter()
	guardian := id.UserID(uuid.New())

	req := testutil.AsGuardian(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/children", map[string]string{
		"name": "민준", "birthDate": "2016-03-10", "gender": "male",
	}), guardian)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	child := testutil.UnmarshalResponse[models.ChildResponse](t, rr)

	t.Run("get own child", func(t *testing.T) {
		req := testutil.AsGuardian(testutil.NewRequest(t, http.MethodGet, "/api/v1/children/"+child.ID), guardian)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "birthDate", "2016-03-10")
	})

	t.Run("other guardian gets 404", func(t *testing.T) {
		req := testutil.AsGuardian(testutil.NewRequest(t, http.MethodGet, "/api/v1/children/"+child.ID), id.UserID(uuid.New()))
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusNotFound, "not_found")
	})

	t.Run("bad date format", func(t *testing.T) {
		req := testutil.AsGuardian(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/children", map[string]string{
			"name": "민준", "birthDate": "2016/03/10", "gender": "male",
		}), guardian)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorDescription(t, rr, "birthDate must match 2006-01-02")
	})

	t.Run("delete", func(t *testing.T) {
		req := testutil.AsGuardian(testutil.NewRequest(t, http.MethodDelete, "/api/v1/children/"+child.ID), guardian)
		testutil.AssertStatus(t, testutil.DoRequest(router, req), http.StatusNoContent)

		req = testutil.AsGuardian(testutil.NewRequest(t, http.MethodGet, "/api/v1/children"), guardian)
		rr := testutil.DoRequest(router, req)
		list := testutil.UnmarshalResponse[models.ListResponse](t, rr)
		assert.Empty(t, list.Children)
	})
}
