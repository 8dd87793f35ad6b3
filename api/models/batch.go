package models

import (
	"time"

	workermodels "imageResizer/worker/models"
)

// Batch is a queued resize batch as stored by the API.
type Batch struct {
	ID           string
	TraceID      string
	Request      workermodels.Request
	Status       workermodels.BatchStatus
	ErrorMessage string
	Report       []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}
