package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "yeirin/pkg/domain"
	"yeirin/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) { return s.claims, s.err }

type stubRevocation struct {
	revoked bool
	err     error
}

func (s stubRevocation) IsTokenRevoked(context.Context, string) (bool, error) {
	return s.revoked, s.err
}

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRequireAuth(t *testing.T) {
	userID := uuid.New()
	instID := uuid.New()
	validClaims := &JWTClaims{
		UserID:        userID.String(),
		Role:          "counselor",
		InstitutionID: instID.String(),
		JTI:           "jti-1",
	}

	serve := func(v JWTValidator, rc TokenRevocationChecker, header string) (*httptest.ResponseRecorder, context.Context) {
		var gotCtx context.Context
		h := RequireAuth(v, rc, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotCtx = r.Context()
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr, gotCtx
	}

	t.Run("missing header", func(t *testing.T) {
		rr, _ := serve(stubValidator{claims: validClaims}, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rr, _ := serve(stubValidator{err: errors.New("bad sig")}, nil, "Bearer x")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		rr, _ := serve(stubValidator{claims: validClaims}, stubRevocation{revoked: true}, "Bearer x")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "revoked")
	})

	t.Run("revocation store failure is 500", func(t *testing.T) {
		rr, _ := serve(stubValidator{claims: validClaims}, stubRevocation{err: errors.New("redis down")}, "Bearer x")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("valid token populates principal", func(t *testing.T) {
		rr, ctx := serve(stubValidator{claims: validClaims}, stubRevocation{}, "Bearer x")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, id.UserID(userID), requestcontext.UserID(ctx))
		assert.Equal(t, id.RoleCounselor, requestcontext.Role(ctx))
		assert.Equal(t, id.InstitutionID(instID), requestcontext.InstitutionID(ctx))
		assert.Equal(t, "jti-1", requestcontext.TokenID(ctx))
	})
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(testLogger(), id.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("unauthenticated", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(requestcontext.WithPrincipal(req.Context(), id.UserID(uuid.New()), id.RoleGuardian, id.InstitutionID{}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("allowed role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(requestcontext.WithPrincipal(req.Context(), id.UserID(uuid.New()), id.RoleAdmin, id.InstitutionID{}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
