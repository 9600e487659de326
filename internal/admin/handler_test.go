package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "yeirin/pkg/domain"
	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/platform/audit/store/memory"
	"yeirin/pkg/testutil"
)

type brokenReader struct{}

func (brokenReader) ListRecent(context.Context, int) ([]audit.Event, error) {
	return nil, errors.New("connection reset")
}

func (brokenReader) ListByUser(context.Context, id.UserID) ([]audit.Event, error) {
	return nil, errors.New("connection reset")
}

func newRouter(reader AuditReader) http.Handler {
	r := chi.NewRouter()
	New(reader, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func seed(t *testing.T, guardian id.UserID) *memory.InMemoryStore {
	t.Helper()
	store := memory.NewInMemoryStore()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	var events []audit.Event
	for i := range 5 {
		events = append(events, audit.Event{
			Category:  audit.CategoryOperations,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			UserID:    guardian,
			Action:    fmt.Sprintf("action_%d", i),
		})
	}
	events = append(events, audit.Event{
		Category:  audit.CategorySecurity,
		Timestamp: base.Add(time.Hour),
		Action:    string(audit.EventRateLimitExceeded),
		IP:        "203.0.113.7",
	})
	require.NoError(t, store.Write(context.Background(), events))
	return store
}

func TestListAudit(t *testing.T) {
	guardian := id.UserID(uuid.New())
	router := newRouter(seed(t, guardian))

	t.Run("newest first with default limit", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/v1/admin/audit"))
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[AuditListResponse](t, rr)
		require.Equal(t, 6, resp.Total)
		assert.Equal(t, string(audit.EventRateLimitExceeded), resp.Events[0].Action)
		assert.Empty(t, resp.Events[0].UserID)
		assert.Equal(t, "203.0.113.7", resp.Events[0].IP)
	})

	t.Run("limit", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/v1/admin/audit?limit=2"))
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[AuditListResponse](t, rr)
		require.Len(t, resp.Events, 2)
		assert.Equal(t, "action_4", resp.Events[1].Action)
	})

	t.Run("by user", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/v1/admin/audit?limit=3&user_id="+guardian.String()))
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[AuditListResponse](t, rr)
		require.Len(t, resp.Events, 3)
		assert.Equal(t, "action_4", resp.Events[0].Action)
		assert.Equal(t, guardian.String(), resp.Events[0].UserID)
	})
}

func TestListAuditRejectsBadQuery(t *testing.T) {
	router := newRouter(memory.NewInMemoryStore())
	for _, q := range []string{"limit=0", "limit=abc", "limit=-3"} {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/v1/admin/audit?"+q))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	}
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/v1/admin/audit?user_id=nope"))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestListAuditHidesStoreErrors(t *testing.T) {
	rr := testutil.DoRequest(newRouter(brokenReader{}), testutil.NewRequest(t, http.MethodGet, "/api/v1/admin/audit"))
	testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
	assert.NotContains(t, rr.Body.String(), "connection reset")
}

func TestParseLimitCaps(t *testing.T) {
	n, err := parseLimit("100000")
	require.NoError(t, err)
	assert.Equal(t, MaxAuditLimit, n)
}
