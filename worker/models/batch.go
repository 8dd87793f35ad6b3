package models

import (
	"time"
)

// Request describes one batch resize invocation. It is not modified once a
// batch has started.
type Request struct {
	InputDir        string `json:"input_folder"`
	OutputDir       string `json:"output_folder"`
	Width           *uint  `json:"width,omitempty"`
	Height          *uint  `json:"height,omitempty"`
	KeepAspectRatio bool   `json:"keep_aspect_ratio"`
	Overwrite       bool   `json:"overwrite"`
}

// FileTask is one candidate file found in the input folder.
type FileTask struct {
	SourcePath      string
	DestinationPath string
	DiscoveredAt    time.Time
}

type BatchReport struct {
	BatchID   string
	OutputDir string
	Elapsed   time.Duration
	Outcomes  []Outcome
}

// Counts returns the number of outcomes per status.
func (r *BatchReport) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, o := range r.Outcomes {
		counts[o.Status()]++
	}
	return counts
}

// BatchStatus tracks a queued batch through the asynchronous worker.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)
