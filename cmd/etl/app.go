package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/mongoetl/internal/config"
	"github.com/JonMunkholm/mongoetl/internal/core"
	"github.com/JonMunkholm/mongoetl/internal/core/datasets"
	"github.com/JonMunkholm/mongoetl/internal/history"
	"github.com/JonMunkholm/mongoetl/internal/logging"
	"github.com/JonMunkholm/mongoetl/internal/notify"
	"github.com/JonMunkholm/mongoetl/internal/store"
)

// disconnectTimeout bounds closing the MongoDB client on exit.
const disconnectTimeout = 10 * time.Second

// app holds everything a command needs. close releases it in reverse order.
type app struct {
	cfg       *config.Config
	mongo     *store.Client
	recorder  core.RunRecorder
	service   *core.Service
	logCloser io.Closer
}

// loadConfig reads the env file, the environment and the rules file, and
// configures logging.
func loadConfig() (*config.Config, io.Closer, error) {
	// Overload lets the env file win over inherited variables
	envErr := godotenv.Overload(envFile)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		return nil, nil, envErr
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	closer := logging.Setup(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if envErr != nil {
		slog.Debug("no env file found, using environment variables", "file", envFile)
	}
	slog.Debug("configuration loaded", "config", cfg.String())

	n, err := datasets.LoadRules(cfg.Pipeline.RulesFile)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	if n > 0 {
		slog.Info("dataset rules loaded", "file", cfg.Pipeline.RulesFile, "datasets", n)
	}

	return cfg, closer, nil
}

// newApp loads configuration and connects the pipeline to its stores.
func newApp(ctx context.Context) (*app, error) {
	cfg, logCloser, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logCloser: logCloser}

	a.mongo, err = store.Connect(cfg.Mongo)
	if err != nil {
		a.close()
		return nil, err
	}

	a.recorder, err = history.Open(ctx, cfg.History.DSN)
	if err != nil {
		a.close()
		return nil, err
	}

	a.service, err = core.NewService(core.Options{
		Dataset:           cfg.Pipeline.Dataset,
		DataDir:           cfg.Pipeline.DataDir,
		StepRetries:       cfg.Pipeline.StepRetries,
		RetryDelay:        cfg.Pipeline.RetryDelay,
		RunTimeout:        cfg.Pipeline.Timeout,
		QualityMaxMissing: cfg.Pipeline.QualityMaxMissing,
		NotifyOnFailure:   cfg.Email.Enabled && cfg.Email.NotifyOnFailure,
	}, core.Deps{
		Source:   a.mongo.Collection(cfg.Mongo.SourceDB, cfg.Mongo.SourceCollection, cfg.Load.BatchSize),
		Sink:     a.mongo.Collection(cfg.Mongo.TargetDB, cfg.Mongo.TargetCollection, cfg.Load.BatchSize),
		Notifier: newNotifier(cfg.Email),
		Recorder: a.recorder,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	if _, err := a.service.Dataset(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func newNotifier(cfg config.EmailConfig) notify.Notifier {
	if !cfg.Enabled {
		return notify.Nop{}
	}
	return notify.NewEmail(cfg)
}

func (a *app) close() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			slog.Warn("close run history", "error", err)
		}
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		if err := a.mongo.Close(ctx); err != nil {
			slog.Warn("disconnect from mongodb", "error", err)
		}
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}
