package model

import "time"

type AnalysisJobStatus string

const (
	AnalysisJobPending    AnalysisJobStatus = "pending"
	AnalysisJobProcessing AnalysisJobStatus = "processing"
	AnalysisJobCompleted  AnalysisJobStatus = "completed"
	AnalysisJobFailed     AnalysisJobStatus = "failed"
)

// AnalysisJob tracks an asynchronous full analysis.
type AnalysisJob struct {
	ID        string            `json:"id"`
	Include   []AnalysisKind    `json:"include,omitempty"`
	Status    AnalysisJobStatus `json:"status"`
	Report    *FullReport       `json:"report,omitempty"`
	LastError string            `json:"last_error,omitempty"`
	ErrorKind string            `json:"error_kind,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
