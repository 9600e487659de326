package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yeirin/internal/platform/validation"
	"yeirin/internal/report/models"
	"yeirin/internal/report/service"
	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
	"yeirin/pkg/platform/httputil"
	"yeirin/pkg/requestcontext"
)

// multipartOverhead leaves room for form boundaries around a maximum-size file.
const multipartOverhead = 1 << 20

type Service interface {
	Create(ctx context.Context, requestID id.CounselRequestID, req models.CreateRequest) (*models.ReportResponse, error)
	List(ctx context.Context, requestID id.CounselRequestID) (*models.ListResponse, error)
	Attach(ctx context.Context, reportID id.ReportID, upload service.Upload) (*models.ReportResponse, error)
}

type Handler struct {
	service   Service
	validator *validation.Validator
	logger    *slog.Logger
}

func New(service Service, validator *validation.Validator, logger *slog.Logger) *Handler {
	return &Handler{service: service, validator: validator, logger: logger}
}

// Register mounts report routes for any authenticated role; the service
// decides who may write and who may read.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/counsel-requests/{id}/reports", h.HandleCreate)
	r.Get("/api/v1/counsel-requests/{id}/reports", h.HandleList)
	r.Post("/api/v1/reports/{id}/attachments", h.HandleAttach)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseCounselRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.service.Create(r.Context(), requestID, req)
	if err != nil {
		h.fail(w, r, "create report failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseCounselRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.service.List(r.Context(), requestID)
	if err != nil {
		h.fail(w, r, "list reports failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	reportID, err := id.ParseReportID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, models.MaxAttachmentSize+multipartOverhead)
	if err := r.ParseMultipartForm(models.MaxAttachmentSize + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "file must be at most 10 MiB"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expected multipart form data"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "file is required"))
		return
	}
	defer file.Close()

	resp, err := h.service.Attach(r.Context(), reportID, service.Upload{
		FileName: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		h.fail(w, r, "attach report file failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	httputil.WriteError(w, err)
}
