package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "yeirin/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description and carries request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		w.Header().Set(RequestIDHeader, "req-123")
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
		if body["request_id"] != "req-123" {
			t.Fatalf("expected request_id req-123, got %q", body["request_id"])
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("uncoded errors become internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, assert.AnError)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, StatusFor(dErrors.CodeMissingConsent))
	assert.Equal(t, http.StatusConflict, StatusFor(dErrors.CodeConflict))
	assert.Equal(t, http.StatusTooManyRequests, StatusFor(dErrors.CodeRateLimited))
	assert.Equal(t, http.StatusNotFound, StatusFor(dErrors.CodeNotFound))
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"예이린"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "예이린", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	err := DecodeJSON(req, &dst)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	err = DecodeJSON(req, &dst)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
