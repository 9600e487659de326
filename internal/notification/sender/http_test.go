package sender

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) *HTTPSender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPSender(srv.URL, "secret-key", "0212345678", 2*time.Second,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestSend_PostsMessage(t *testing.T) {
	var got map[string]string
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message_id":"gw-123","status":"accepted"}`))
	})

	providerID, err := s.Send(context.Background(), Outgoing{Reference: "msg-1", To: "010-1234-5678", Body: "안녕하세요"})
	require.NoError(t, err)
	assert.Equal(t, "gw-123", providerID)
	assert.Equal(t, "0212345678", got["from"])
	assert.Equal(t, "010-1234-5678", got["to"])
	assert.Equal(t, "안녕하세요", got["text"])
	assert.Equal(t, "msg-1", got["reference"])
}

func TestSend_Failures(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		s := newTestSender(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := s.Send(context.Background(), Outgoing{To: "010", Body: "x"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrGateway))
	})

	t.Run("missing message id", func(t *testing.T) {
		s := newTestSender(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"accepted"}`))
		})
		_, err := s.Send(context.Background(), Outgoing{To: "010", Body: "x"})
		assert.ErrorIs(t, err, ErrGateway)
	})

	t.Run("unreachable", func(t *testing.T) {
		s := NewHTTPSender("http://127.0.0.1:1", "k", "f", 200*time.Millisecond,
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		_, err := s.Send(context.Background(), Outgoing{To: "010", Body: "x"})
		assert.ErrorIs(t, err, ErrGateway)
	})
}

func TestLogSender(t *testing.T) {
	providerID, err := NewLogSender(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Send(context.Background(), Outgoing{Reference: "r", To: "010", Body: "본문"})
	require.NoError(t, err)
	assert.Contains(t, providerID, "log-")
}
