package core

// pipeline.go sequences the steps of a run.
//
// Steps run in StepOrder and the first failure stops the run. A failed step
// is retried StepRetries times, RetryDelay apart; cancelling the context
// aborts both the step and the wait. Every step result is written to the
// run recorder. History errors are logged and never fail a run.

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/mongoetl/internal/logging"
)

// StepID identifies a pipeline step.
type StepID string

const (
	StepCheckConnection StepID = "check_connection"
	StepExtract         StepID = "extract"
	StepClean           StepID = "clean"
	StepQualityCheck    StepID = "quality_check"
	StepLoad            StepID = "load"
	StepNotify          StepID = "notify"
)

// StepOrder is the order a full run executes steps in.
var StepOrder = []StepID{
	StepCheckConnection,
	StepExtract,
	StepClean,
	StepQualityCheck,
	StepLoad,
	StepNotify,
}

// ParseStep validates a step name.
func ParseStep(name string) (StepID, error) {
	for _, id := range StepOrder {
		if string(id) == name {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownStep, name)
}

func stepNames() []string {
	names := make([]string, len(StepOrder))
	for i, id := range StepOrder {
		names[i] = string(id)
	}
	return names
}

// Run executes every step in order.
// Returns ErrRunInProgress without recording anything when another run is active.
func (s *Service) Run(ctx context.Context, trigger Trigger) (Run, error) {
	return s.execute(ctx, trigger, StepOrder)
}

// RunStep executes a single step as its own run. External schedulers use
// this to drive the steps as separate tasks.
func (s *Service) RunStep(ctx context.Context, id StepID) (Run, error) {
	if _, err := ParseStep(string(id)); err != nil {
		return Run{}, err
	}
	return s.execute(ctx, TriggerStep, []StepID{id})
}

func (s *Service) execute(ctx context.Context, trigger Trigger, steps []StepID) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Dataset:   s.opts.Dataset,
		Trigger:   trigger,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
		Steps:     make([]StepResult, 0, len(steps)),
	}

	if err := s.limiter.TryAcquire(run.ID); err != nil {
		return Run{}, err
	}
	defer s.limiter.Release()

	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}
	ctx = logging.ContextWithRunID(ctx, run.ID)
	log := logging.FromContext(ctx)

	// History writes outlive a cancelled run
	recordCtx := context.WithoutCancel(ctx)

	log.Info("run started", "dataset", run.Dataset, "trigger", trigger, "steps", len(steps))
	s.logRecordErr(recordCtx, "start run", s.recorder.StartRun(recordCtx, run))

	var runErr error
	for _, id := range steps {
		res, err := s.runWithRetry(ctx, id, run)
		run.Steps = append(run.Steps, res)
		s.logRecordErr(recordCtx, "record step", s.recorder.RecordStep(recordCtx, run.ID, res))
		if err != nil {
			runErr = fmt.Errorf("step %s: %w", id, err)
			break
		}
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished

	if runErr != nil {
		msg := MapError(runErr)
		run.Status = RunFailed
		run.Error = runErr.Error()
		run.ErrorCode = msg.Code
		log.Error("run failed", "error", runErr, "code", msg.Code, "action", msg.Action)

		if s.opts.NotifyOnFailure {
			if err := s.Notify(recordCtx, run); err != nil {
				log.Error("failure notification not sent", "error", err)
			}
		}
	} else {
		run.Status = RunSucceeded
		log.Info("run succeeded", "duration_ms", finished.Sub(run.StartedAt).Milliseconds())
	}

	s.logRecordErr(recordCtx, "finish run", s.recorder.FinishRun(recordCtx, run))
	return run, runErr
}

// runWithRetry runs one step, retrying failures.
func (s *Service) runWithRetry(ctx context.Context, id StepID, run Run) (StepResult, error) {
	log := logging.WithFields(ctx, "step", id)
	res := StepResult{Step: id, StartedAt: time.Now().UTC()}
	attempts := 1 + max(s.opts.StepRetries, 0)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		res.Attempts = attempt
		log.Debug("step started", "attempt", attempt)

		var msg string
		msg, err = s.runStep(ctx, id, run)
		if err == nil {
			res.Status = StepSucceeded
			res.Message = msg
			break
		}
		if ctx.Err() != nil || attempt == attempts {
			break
		}

		log.Warn("step failed, retrying",
			"attempt", attempt,
			"retry_in", s.opts.RetryDelay,
			"error", err,
		)
		if serr := s.sleep(ctx, s.opts.RetryDelay); serr != nil {
			err = fmt.Errorf("%w; retry aborted: %w", err, serr)
			break
		}
	}

	res.FinishedAt = time.Now().UTC()
	if err != nil {
		res.Status = StepFailed
		res.Error = err.Error()
		res.ErrorCode = MapError(err).Code
		log.Error("step failed", "attempts", res.Attempts, "error", err)
		return res, err
	}

	log.Info("step succeeded", "attempts", res.Attempts, "duration_ms", res.Duration().Milliseconds())
	return res, nil
}

// runStep dispatches to the step implementation and summarizes its result.
func (s *Service) runStep(ctx context.Context, id StepID, run Run) (string, error) {
	switch id {
	case StepCheckConnection:
		if err := s.CheckConnection(ctx); err != nil {
			return "", err
		}
		return "connected to " + s.source.Name(), nil

	case StepExtract:
		n, err := s.Extract(ctx)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "no documents found", nil
		}
		return fmt.Sprintf("extracted %d documents", n), nil

	case StepClean:
		stats, err := s.Clean(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d rows in, %d rows out, %d columns", stats.RowsIn, stats.RowsOut, stats.ColumnsOut), nil

	case StepQualityCheck:
		report, err := s.QualityCheck(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d rows, %d columns, %d missing values", report.Rows, len(report.Columns), report.TotalMissing), nil

	case StepLoad:
		res, err := s.Load(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("deleted %d, inserted %d documents", res.Deleted, res.Inserted), nil

	case StepNotify:
		if err := s.Notify(ctx, run); err != nil {
			return "", err
		}
		return "notification sent via " + s.notifier.Name(), nil

	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
}

func (s *Service) logRecordErr(ctx context.Context, op string, err error) {
	if err != nil {
		logging.FromContext(ctx).Error("run history write failed", "op", op, "error", err)
	}
}
