package dto

import (
	"errors"
	"strings"

	"imageResizer/worker/models"
)

var (
	ErrBatchNotFound  = errors.New("batch not found")
	ErrMissingFolders = errors.New("input_folder and output_folder are required")
	ErrInvalidFolder  = errors.New("folder paths must not start with '-'")
)

type ResizeRequest struct {
	InputFolder     string `json:"input_folder"`
	OutputFolder    string `json:"output_folder"`
	Width           *uint  `json:"width,omitempty"`
	Height          *uint  `json:"height,omitempty"`
	KeepAspectRatio bool   `json:"keep_aspect_ratio"`
	Overwrite       bool   `json:"overwrite"`
}

func (r *ResizeRequest) Validate() error {
	if strings.TrimSpace(r.InputFolder) == "" || strings.TrimSpace(r.OutputFolder) == "" {
		return ErrMissingFolders
	}
	if strings.HasPrefix(r.InputFolder, "-") || strings.HasPrefix(r.OutputFolder, "-") {
		return ErrInvalidFolder
	}
	return nil
}

func (r *ResizeRequest) ToModel() models.Request {
	return models.Request{
		InputDir:        r.InputFolder,
		OutputDir:       r.OutputFolder,
		Width:           r.Width,
		Height:          r.Height,
		KeepAspectRatio: r.KeepAspectRatio,
		Overwrite:       r.Overwrite,
	}
}

type OpenRequest struct {
	Path string `json:"path"`
}

type BatchResponse struct {
	ID           string             `json:"id"`
	TraceID      string             `json:"trace_id,omitempty"`
	Status       string             `json:"status"`
	ErrorMessage string             `json:"error_message,omitempty"`
	CreatedAt    string             `json:"created_at,omitempty"`
	CompletedAt  *string            `json:"completed_at,omitempty"`
	Report       *models.ReportView `json:"report,omitempty"`
}

// Error codes carried in ErrorResponse.Code.
const (
	CodeInvalidRequest = "invalid_request"
	CodeNotFound       = "not_found"
	CodeInternal       = "internal"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}
