package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"imageResizer/api/dto"
	"imageResizer/api/explorer"
	"imageResizer/api/middleware"
	"imageResizer/worker/models"
	"imageResizer/worker/service"
)

const maxBodyBytes = 1 << 20

type BatchService interface {
	Resize(ctx context.Context, req *dto.ResizeRequest) (*models.ReportView, error)
	Submit(ctx context.Context, traceID string, req *dto.ResizeRequest) (*dto.BatchResponse, error)
	GetBatch(ctx context.Context, batchID string) (*dto.BatchResponse, error)
}

type Opener interface {
	Open(path string) error
}

type BatchHandler struct {
	service BatchService
	opener  Opener
	logger  *zap.Logger
}

func NewBatchHandler(service BatchService, opener Opener, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		service: service,
		opener:  opener,
		logger:  logger,
	}
}

// Resize processes the folder before responding.
func (h *BatchHandler) Resize(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	req, ok := h.decodeResizeRequest(w, r, traceID)
	if !ok {
		return
	}

	report, err := h.service.Resize(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrSourceNotFound) {
			h.handleError(w, "Input folder not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to resize images", err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Batch resized",
		zap.String("trace_id", traceID),
		zap.String("input_folder", req.InputFolder),
		zap.Int("results", len(report.Results)),
		zap.String("processing_time", report.ProcessingTime),
	)

	h.respondJSON(w, http.StatusOK, report)
}

// Submit queues the folder for the worker and returns immediately.
func (h *BatchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	req, ok := h.decodeResizeRequest(w, r, traceID)
	if !ok {
		return
	}

	resp, err := h.service.Submit(r.Context(), traceID, req)
	if err != nil {
		h.handleError(w, "Failed to submit batch", err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Batch submitted",
		zap.String("trace_id", traceID),
		zap.String("batch_id", resp.ID),
		zap.String("input_folder", req.InputFolder),
	)

	h.respondJSON(w, http.StatusAccepted, resp)
}

func (h *BatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	batchID := chi.URLParam(r, "id")
	if batchID == "" {
		h.handleError(w, "Batch ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetBatch(r.Context(), batchID)
	if err != nil {
		if errors.Is(err, dto.ErrBatchNotFound) {
			h.handleError(w, "Batch not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get batch status", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *BatchHandler) Open(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	var req dto.OpenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.handleError(w, "Invalid request body", err, traceID, http.StatusBadRequest)
		return
	}

	if err := h.opener.Open(req.Path); err != nil {
		if errors.Is(err, explorer.ErrEmptyPath) {
			h.handleError(w, "Path is required", err, traceID, http.StatusBadRequest)
			return
		}
		h.handleError(w, "Failed to open folder", err, traceID, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *BatchHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *BatchHandler) decodeResizeRequest(w http.ResponseWriter, r *http.Request, traceID string) (*dto.ResizeRequest, bool) {
	var req dto.ResizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.handleError(w, "Invalid request body", err, traceID, http.StatusBadRequest)
		return nil, false
	}

	if err := req.Validate(); err != nil {
		h.handleError(w, err.Error(), err, traceID, http.StatusBadRequest)
		return nil, false
	}

	return &req, true
}

func (h *BatchHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Code:    errorCode(status),
		TraceID: traceID,
	})
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return dto.CodeInvalidRequest
	case http.StatusNotFound:
		return dto.CodeNotFound
	default:
		return dto.CodeInternal
	}
}

func (h *BatchHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
