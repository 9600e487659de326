package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yeirin/internal/notification/models"
	"yeirin/internal/platform/validation"
	dErrors "yeirin/pkg/domain-errors"
	"yeirin/pkg/platform/httputil"
	"yeirin/pkg/requestcontext"
)

const (
	SignatureHeader = "X-Signature"
	maxCallbackSize = 64 << 10
)

type Service interface {
	HandleDelivery(ctx context.Context, cb models.DeliveryCallback) error
}

// Handler receives SMS gateway delivery callbacks. The route sits outside
// bearer authentication; callers prove themselves with an HMAC of the body.
type Handler struct {
	service   Service
	secret    []byte
	validator *validation.Validator
	logger    *slog.Logger
}

func New(service Service, secret string, validator *validation.Validator, logger *slog.Logger) *Handler {
	return &Handler{service: service, secret: []byte(secret), validator: validator, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/webhooks/sms", h.HandleDeliveryCallback)
}

func (h *Handler) HandleDeliveryCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackSize))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "callback body too large or unreadable"))
		return
	}
	if !h.verify(body, r.Header.Get(SignatureHeader)) {
		h.fail(w, r, "sms callback rejected", dErrors.New(dErrors.CodeUnauthorized, "invalid signature"))
		return
	}

	var cb models.DeliveryCallback
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&cb); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid json payload"))
		return
	}
	if err := h.validator.Struct(&cb); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.HandleDelivery(r.Context(), cb); err != nil {
		h.fail(w, r, "apply sms delivery failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// verify checks a hex HMAC-SHA256 of the raw body. An unset secret rejects
// every callback.
func (h *Handler) verify(body []byte, signature string) bool {
	if len(h.secret) == 0 || signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(h.secret, body))
}

// Sign returns the HMAC-SHA256 the gateway is expected to send.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	httputil.WriteError(w, err)
}
