package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"filer/internal/classifier"
	"filer/internal/config"
	"filer/internal/describe"
	"filer/internal/history"
	"filer/internal/logging"
	"filer/internal/services"
	"filer/internal/workflow"
)

// session holds the collaborators shared by every run of one invocation.
// Watch mode reuses a session across triggered runs.
type session struct {
	cfg        *config.Config
	logger     *slog.Logger
	classifier workflow.Classifier
	describer  workflow.Describer
	journal    *history.Store
}

func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session, error) {
	s := &session{cfg: cfg, logger: logger}

	adapter, err := classifier.NewAdapterFromConfig(ctx, cfg, logger)
	switch {
	case err == nil:
		s.classifier = adapter
	case errors.Is(err, services.ErrConfiguration):
		// Similarity matches still move; unmatched files are reported as failed.
		logging.WarnWithContext(logger, "classifier unavailable", "classifier_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `filer doctor` to check classifier settings"),
			logging.String(logging.FieldImpact, "files without a similarity match stay in incoming"),
		)
	default:
		return nil, err
	}

	if cfg.Describe.Enabled {
		s.describer = describe.New(describe.Options{
			ExiftoolBinary: cfg.Describe.ExiftoolBinary,
			MaxLength:      cfg.Describe.MaxLength,
			Concurrency:    cfg.Describe.Concurrency,
			Logger:         logger,
		})
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		s.journal = store
	}
	return s, nil
}

func (s *session) Close() error {
	if s == nil || s.journal == nil {
		return nil
	}
	return s.journal.Close()
}

// runOnce performs a single pass, mirroring its logs into a per-run JSON file
// under the log directory.
func (s *session) runOnce(ctx context.Context) (*workflow.Report, error) {
	runID := uuid.NewString()
	logger := s.logger

	runLog, err := logging.OpenRunLog(s.cfg.Paths.LogDir, runID, s.cfg.Logging.Level)
	if err != nil {
		logging.WarnWithContext(logger, "run log unavailable", "run_log_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is logged to the console only"),
		)
	} else {
		defer runLog.Close()
		logger = logging.TeeLogger(logger, runLog.Handler)
		logging.CleanupOldLogs(logger, s.cfg.Paths.LogDir, "filer-*.log", s.cfg.Logging.RetentionDays, runLog.Path)
	}

	opts := []workflow.Option{workflow.WithRunIDs(func() string { return runID })}
	if s.describer != nil {
		opts = append(opts, workflow.WithDescriber(s.describer))
	}
	if s.journal != nil {
		opts = append(opts, workflow.WithJournal(s.journal))
	}
	return workflow.New(s.cfg, s.classifier, logger, opts...).Run(ctx)
}
