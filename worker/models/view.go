package models

import (
	"fmt"
)

const TimestampLayout = "2006-01-02 15:04:05"

// OutcomeView is the serialized form of a single outcome.
type OutcomeView struct {
	File       string `json:"file"`
	OutputFile string `json:"output_file,omitempty"`
	Timestamp  string `json:"timestamp"`
	Status     Status `json:"status"`
	Message    string `json:"message"`
}

// ReportView is the serialized form of a BatchReport returned to callers and
// stored by the worker.
type ReportView struct {
	BatchID        string        `json:"batch_id,omitempty"`
	OutputFolder   string        `json:"output_folder"`
	ProcessingTime string        `json:"processing_time"`
	Results        []OutcomeView `json:"results"`
}

func NewReportView(r *BatchReport) *ReportView {
	results := make([]OutcomeView, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		results = append(results, NewOutcomeView(o))
	}

	return &ReportView{
		BatchID:        r.BatchID,
		OutputFolder:   r.OutputDir,
		ProcessingTime: fmt.Sprintf("%.2f seconds", r.Elapsed.Seconds()),
		Results:        results,
	}
}

func NewOutcomeView(o Outcome) OutcomeView {
	view := OutcomeView{
		File:      o.Source(),
		Timestamp: o.Time().Format(TimestampLayout),
		Status:    o.Status(),
	}

	switch v := o.(type) {
	case Success:
		view.OutputFile = v.DestinationPath
		view.Message = v.Message
	case Skipped:
		view.OutputFile = v.DestinationPath
		view.Message = v.Reason
	case Unsupported:
		view.Message = v.Reason
	case Failed:
		view.OutputFile = v.DestinationPath
		if v.Err != nil {
			view.Message = v.Err.Error()
		}
	}

	return view
}
