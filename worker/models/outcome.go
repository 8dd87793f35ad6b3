package models

import "time"

type Status string

const (
	StatusSuccess     Status = "success"
	StatusSkipped     Status = "skipped"
	StatusError       Status = "error"
	StatusUnsupported Status = "unsupported_format"
)

// Outcome is the terminal result of processing a single file. The set of
// implementations is closed: Success, Skipped, Unsupported and Failed.
type Outcome interface {
	Source() string
	Status() Status
	Time() time.Time
	isOutcome()
}

type Success struct {
	SourcePath      string
	DestinationPath string
	Message         string
	Width           int
	Height          int
	Timestamp       time.Time
}

type Skipped struct {
	SourcePath      string
	DestinationPath string
	Reason          string
	Timestamp       time.Time
}

// Unsupported is recorded both for files rejected by the extension filter
// and for files whose content signature is not an accepted image type.
type Unsupported struct {
	SourcePath string
	Reason     string
	Timestamp  time.Time
}

// Failed carries the per-file error. DestinationPath is empty when no
// destination had been computed.
type Failed struct {
	SourcePath      string
	DestinationPath string
	Err             error
	Timestamp       time.Time
}

func (o Success) Source() string     { return o.SourcePath }
func (o Skipped) Source() string     { return o.SourcePath }
func (o Unsupported) Source() string { return o.SourcePath }
func (o Failed) Source() string      { return o.SourcePath }

func (Success) Status() Status     { return StatusSuccess }
func (Skipped) Status() Status     { return StatusSkipped }
func (Unsupported) Status() Status { return StatusUnsupported }
func (Failed) Status() Status      { return StatusError }

func (o Success) Time() time.Time     { return o.Timestamp }
func (o Skipped) Time() time.Time     { return o.Timestamp }
func (o Unsupported) Time() time.Time { return o.Timestamp }
func (o Failed) Time() time.Time      { return o.Timestamp }

func (Success) isOutcome()     {}
func (Skipped) isOutcome()     {}
func (Unsupported) isOutcome() {}
func (Failed) isOutcome()      {}
