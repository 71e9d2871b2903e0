// Package notify delivers pipeline outcome notifications to operators.
package notify

import (
	"context"
	"time"
)

// EventType represents the outcome being reported.
type EventType string

const (
	EventRunSucceeded EventType = "run_succeeded"
	EventRunFailed    EventType = "run_failed"
)

// StepSummary is one line of the step table in a notification.
type StepSummary struct {
	Step     string
	Status   string
	Attempts int
	Message  string
	Duration time.Duration
}

// Event represents a notification event.
type Event struct {
	Type       EventType
	RunID      string
	Dataset    string
	Source     string
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepSummary
	Error      string
	ErrorCode  string
}

// Succeeded reports whether the event is a success notification.
func (e Event) Succeeded() bool { return e.Type == EventRunSucceeded }

// Notifier is the interface for notification providers.
type Notifier interface {
	// Name returns the provider name
	Name() string

	// Send sends a notification
	Send(ctx context.Context, event Event) error
}

// Nop discards notifications. Used when email is disabled.
type Nop struct{}

func (Nop) Name() string { return "none" }
func (Nop) Send(context.Context, Event) error { return nil }
