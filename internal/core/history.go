package core

import (
	"context"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// StepStatus is the outcome of one step.
type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerCLI  Trigger = "cli"
	TriggerHTTP Trigger = "http"
	TriggerStep Trigger = "step"
)

// StepResult records one executed step.
type StepResult struct {
	Step       StepID     `json:"step"`
	Status     StepStatus `json:"status"`
	Attempts   int        `json:"attempts"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Message    string     `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
	ErrorCode  string     `json:"error_code,omitempty"`
}

// Duration returns how long the step took, retries included.
func (r StepResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Run is one execution of the pipeline or of a single step.
type Run struct {
	ID         string       `json:"id"`
	Dataset    string       `json:"dataset"`
	Trigger    Trigger      `json:"trigger"`
	Status     RunStatus    `json:"status"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Steps      []StepResult `json:"steps"`
	Error      string       `json:"error,omitempty"`
	ErrorCode  string       `json:"error_code,omitempty"`
}

// RunRecorder persists run history. Implementations live in the history package.
type RunRecorder interface {
	StartRun(ctx context.Context, run Run) error
	RecordStep(ctx context.Context, runID string, step StepResult) error
	FinishRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, id string) (Run, error)
	Close() error
}

// NopRecorder keeps no history.
type NopRecorder struct{}

func (NopRecorder) StartRun(context.Context, Run) error { return nil }
func (NopRecorder) RecordStep(context.Context, string, StepResult) error { return nil }
func (NopRecorder) FinishRun(context.Context, Run) error { return nil }
func (NopRecorder) ListRuns(context.Context, int) ([]Run, error) { return nil, nil }
func (NopRecorder) GetRun(context.Context, string) (Run, error) { return Run{}, ErrRunNotFound }
func (NopRecorder) Close() error { return nil }
