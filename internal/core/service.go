package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/JonMunkholm/mongoetl/internal/logging"
	"github.com/JonMunkholm/mongoetl/internal/notify"
)

// DocumentSource is the collection records are extracted from.
type DocumentSource interface {
	Name() string
	Ping(ctx context.Context) error
	FetchAll(ctx context.Context) ([]bson.D, error)
}

// DocumentSink is the collection cleaned records are loaded into.
type DocumentSink interface {
	Name() string
	// ReplaceAll deletes every document and inserts docs.
	ReplaceAll(ctx context.Context, docs []bson.D) (deleted, inserted int64, err error)
}

// Options holds pipeline settings.
type Options struct {
	Dataset           string
	DataDir           string
	StepRetries       int
	RetryDelay        time.Duration
	RunTimeout        time.Duration
	QualityMaxMissing int
	NotifyOnFailure   bool
}

// Deps are the external systems a Service talks to.
// Notifier and Recorder default to no-ops when nil.
type Deps struct {
	Source   DocumentSource
	Sink     DocumentSink
	Notifier notify.Notifier
	Recorder RunRecorder
}

// Service runs the pipeline steps.
type Service struct {
	opts     Options
	source   DocumentSource
	sink     DocumentSink
	notifier notify.Notifier
	recorder RunRecorder
	limiter  *RunLimiter

	// sleep waits between retries; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService creates a new Service instance.
func NewService(opts Options, deps Deps) (*Service, error) {
	if deps.Source == nil || deps.Sink == nil {
		return nil, errors.New("source and sink are required")
	}
	if opts.DataDir == "" {
		return nil, errors.New("data dir is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Recorder == nil {
		deps.Recorder = NopRecorder{}
	}

	return &Service{
		opts:     opts,
		source:   deps.Source,
		sink:     deps.Sink,
		notifier: deps.Notifier,
		recorder: deps.Recorder,
		limiter:  NewRunLimiter(),
		sleep:    sleepContext,
	}, nil
}

// Limiter exposes the run limiter for health reporting and shutdown.
func (s *Service) Limiter() *RunLimiter { return s.limiter }

// Recorder returns the run history store.
func (s *Service) Recorder() RunRecorder { return s.recorder }

// SourceName is the source collection as db.collection.
func (s *Service) SourceName() string { return s.source.Name() }

// DatasetKey is the configured dataset, registered or not.
func (s *Service) DatasetKey() string { return s.opts.Dataset }

// Dataset returns the active dataset definition.
func (s *Service) Dataset() (DatasetDefinition, error) {
	def, ok := Get(s.opts.Dataset)
	if !ok {
		return DatasetDefinition{}, fmt.Errorf("%w: %s", ErrUnknownDataset, s.opts.Dataset)
	}
	return def, nil
}

// RawPath is the staging file written by Extract.
func (s *Service) RawPath(def DatasetDefinition) string {
	return filepath.Join(s.opts.DataDir, def.RawFile())
}

// CleanPath is the staging file written by Clean.
func (s *Service) CleanPath(def DatasetDefinition) string {
	return filepath.Join(s.opts.DataDir, def.CleanFile())
}

// CheckConnection verifies the source deployment is reachable.
func (s *Service) CheckConnection(ctx context.Context) error {
	if err := s.source.Ping(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.source.Name(), err)
	}
	logging.FromContext(ctx).Debug("mongodb connection ok", "source", s.source.Name())
	return nil
}

// Extract copies every source document into the raw staging file.
// An empty source is not an error: the stale raw file is removed so the
// clean step fails instead of reprocessing old data.
func (s *Service) Extract(ctx context.Context) (int, error) {
	def, err := s.Dataset()
	if err != nil {
		return 0, err
	}
	log := logging.FromContext(ctx)

	docs, err := s.source.FetchAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", s.source.Name(), err)
	}

	path := s.RawPath(def)
	if len(docs) == 0 {
		log.Warn("no documents found", "source", s.source.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("remove stale staging file: %w", err)
		}
		return 0, nil
	}

	t := TableFromDocuments(docs)
	if err := WriteCSVFile(path, t); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}

	log.Info("extraction complete",
		"documents", len(docs),
		"columns", len(t.Columns),
		"file", path,
	)
	return len(docs), nil
}

// Clean applies the dataset's operations to the raw staging file and
// writes the cleaned file.
func (s *Service) Clean(ctx context.Context) (CleanStats, error) {
	def, err := s.Dataset()
	if err != nil {
		return CleanStats{}, err
	}
	log := logging.FromContext(ctx)

	in := s.RawPath(def)
	t, size, err := ReadCSVFile(in)
	if err != nil {
		return CleanStats{}, err
	}
	log.Debug("read raw staging file", "file", in, "bytes", size, "rows", t.Len())

	stats, err := Clean(t, def.Operations)
	if err != nil {
		return CleanStats{}, fmt.Errorf("dataset %s: %w", def.Key, err)
	}
	for _, op := range stats.Ops {
		log.Debug("cleaning operation", "op", op.Op, "columns", op.Columns, "changed", op.Changed)
	}

	out := s.CleanPath(def)
	if err := WriteCSVFile(out, t); err != nil {
		return CleanStats{}, fmt.Errorf("write %s: %w", out, err)
	}

	log.Info("cleaning complete",
		"rows_in", stats.RowsIn,
		"rows_out", stats.RowsOut,
		"columns_in", stats.ColumnsIn,
		"columns_out", stats.ColumnsOut,
		"file", out,
	)
	return stats, nil
}

// QualityCheck audits the cleaned staging file.
func (s *Service) QualityCheck(ctx context.Context) (QualityReport, error) {
	def, err := s.Dataset()
	if err != nil {
		return QualityReport{}, err
	}

	t, _, err := ReadCSVFile(s.CleanPath(def))
	if err != nil {
		return QualityReport{}, err
	}

	report := BuildQualityReport(t)
	report.Log(logging.FromContext(ctx))
	if err := report.Check(s.opts.QualityMaxMissing); err != nil {
		return report, err
	}
	return report, nil
}

// LoadResult reports what Load changed in the target.
type LoadResult struct {
	Deleted  int64 `json:"deleted"`
	Inserted int64 `json:"inserted"`
}

// Load replaces the target collection with the cleaned staging file.
func (s *Service) Load(ctx context.Context) (LoadResult, error) {
	def, err := s.Dataset()
	if err != nil {
		return LoadResult{}, err
	}

	t, _, err := ReadCSVFile(s.CleanPath(def))
	if err != nil {
		return LoadResult{}, err
	}

	docs := DocumentsFromTable(t, def.DateColumns())
	deleted, inserted, err := s.sink.ReplaceAll(ctx, docs)
	if err != nil {
		return LoadResult{Deleted: deleted, Inserted: inserted}, fmt.Errorf("load %s: %w", s.sink.Name(), err)
	}

	logging.FromContext(ctx).Info("load complete",
		"target", s.sink.Name(),
		"deleted", deleted,
		"inserted", inserted,
	)
	return LoadResult{Deleted: deleted, Inserted: inserted}, nil
}

// Notify sends the outcome of run to the operator.
func (s *Service) Notify(ctx context.Context, run Run) error {
	event := s.eventFor(run)
	if err := s.notifier.Send(ctx, event); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("notification sent", "provider", s.notifier.Name(), "type", event.Type)
	return nil
}

func (s *Service) eventFor(run Run) notify.Event {
	ev := notify.Event{
		Type:      notify.EventRunSucceeded,
		RunID:     run.ID,
		Dataset:   run.Dataset,
		Source:    s.source.Name(),
		Target:    s.sink.Name(),
		StartedAt: run.StartedAt,
		Error:     run.Error,
		ErrorCode: run.ErrorCode,
	}
	if run.Status == RunFailed {
		ev.Type = notify.EventRunFailed
	}
	if run.FinishedAt != nil {
		ev.FinishedAt = *run.FinishedAt
	}
	for _, st := range run.Steps {
		ev.Steps = append(ev.Steps, notify.StepSummary{
			Step:     string(st.Step),
			Status:   string(st.Status),
			Attempts: st.Attempts,
			Message:  st.Message,
			Duration: st.Duration(),
		})
	}
	return ev
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
