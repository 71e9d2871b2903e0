package core

// run_limiter.go keeps pipeline runs from overlapping.
//
// Two runs writing the same staging files and replacing the same target
// collection would corrupt each other, so the limiter admits one run at a
// time. Callers that cannot wait (HTTP triggers) use TryAcquire and report
// ErrRunInProgress; shutdown uses WaitForDrain to let an active run finish.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// RunLimiter controls concurrent runs using a semaphore pattern.
type RunLimiter struct {
	semaphore chan struct{}

	mu       sync.RWMutex
	activeID string
	since    time.Time
}

// NewRunLimiter creates a limiter that admits one run at a time.
func NewRunLimiter() *RunLimiter {
	return &RunLimiter{
		semaphore: make(chan struct{}, 1),
	}
}

// TryAcquire attempts to acquire the run slot without blocking.
// Returns ErrRunInProgress when another run holds it.
// The caller MUST call Release() when the run completes (use defer).
func (l *RunLimiter) TryAcquire(runID string) error {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.activeID = runID
		l.since = time.Now()
		l.mu.Unlock()
		return nil
	default:
		return ErrRunInProgress
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful TryAcquire.
func (l *RunLimiter) Release() {
	l.mu.Lock()
	l.activeID = ""
	l.since = time.Time{}
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveRun returns the ID of the running pipeline, or "" when idle.
func (l *RunLimiter) ActiveRun() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.activeID
}

// WaitForDrain blocks until the active run completes or context is cancelled.
// Used for graceful shutdown.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if len(l.semaphore) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunLimiterStatus is a snapshot of the limiter's state.
type RunLimiterStatus struct {
	Busy      bool       `json:"busy"`
	ActiveRun string     `json:"active_run,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
}

// Status returns the current limiter state for monitoring.
func (l *RunLimiter) Status() RunLimiterStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := RunLimiterStatus{Busy: len(l.semaphore) > 0, ActiveRun: l.activeID}
	if s.Busy && !l.since.IsZero() {
		since := l.since
		s.Since = &since
	}
	return s
}
