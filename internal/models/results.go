package models

import (
	"time"
)

type Step string

const (
	StepIdle        Step = "idle"
	StepInitiated   Step = "initiated"
	StepStarted     Step = "started"
	StepEnumerating Step = "enumerating"
	StepNormalizing Step = "normalizing"
	StepScoring     Step = "scoring"
	StepEmitting    Step = "emitting"
	StepCompleted   Step = "completed"
	StepFailed      Step = "failed"
)

// Valid reports whether s is one of the known steps
func (s Step) Valid() bool {
	switch s {
	case StepIdle, StepInitiated, StepStarted, StepEnumerating, StepNormalizing,
		StepScoring, StepEmitting, StepCompleted, StepFailed:
		return true
	}
	return false
}

// FileRecord is one member of a corpus. ID is the position of Path in the
// sorted corpus.
type FileRecord struct {
	ID   int    `bson:"id" json:"id"`
	Path string `bson:"path" json:"path"`
}

// RunReport is the persisted form of one comparison run
type RunReport struct {
	RunID      string       `bson:"runId" json:"runId"`
	Directory  string       `bson:"directory" json:"directory"`
	Status     string       `bson:"status" json:"status"` // completed, failed
	Error      string       `bson:"error,omitempty" json:"error,omitempty"`
	Files      []FileRecord `bson:"files" json:"files"`
	Matrix     [][]float64  `bson:"matrix" json:"matrix"`
	StartedAt  time.Time    `bson:"startedAt" json:"startedAt"`
	FinishedAt time.Time    `bson:"finishedAt" json:"finishedAt"`
	CreatedAt  time.Time    `bson:"createdAt" json:"createdAt"`
}

// ComputeRequest represents a request to compare a directory
type ComputeRequest struct {
	Directory string `json:"directory" binding:"required"`
	RunID     string `json:"runId,omitempty"`
}

// ComputeResponse represents the response from compute endpoint
type ComputeResponse struct {
	Step  Step   `json:"step"`
	RunID string `json:"runId"`
}

// StatusResponse represents the response from the run status endpoint
type StatusResponse struct {
	Step  Step   `json:"step"`
	RunID string `json:"runId"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
