// Package model holds the Job Queue's wire and storage shapes (spec.md
// §4.6): a FIFO queue of Apply requests, each progressing
// QUEUED -> RUNNING -> {SUCCEEDED, FAILED, CANCELED}.
package model

import (
	"time"

	workflowmodel "github.com/andreypavlenko/caesub/modules/workflow/model"
)

// Status is the closed job lifecycle set.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusCanceled  Status = "CANCELED"
)

// IsTerminal reports whether status is one the queue never transitions out
// of.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// Job is one queued Apply request plus its lifecycle and eventual result.
type Job struct {
	JobID       string                   `json:"job_id"`
	PlanID      string                   `json:"plan_id"`
	Request     workflowmodel.ApplyRequest `json:"request"`
	Status      Status                   `json:"status"`
	Result      *workflowmodel.ApplyResult `json:"result,omitempty"`
	Error       string                   `json:"error,omitempty"`
	CancelAsked bool                     `json:"cancel_asked,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	StartedAt   *time.Time               `json:"started_at,omitempty"`
	FinishedAt  *time.Time               `json:"finished_at,omitempty"`
}
