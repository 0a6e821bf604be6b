package workflow

import (
	"context"
	"time"

	"filer/internal/classifier"
	"filer/internal/history"
	"filer/internal/logging"
	"filer/internal/matcher"
	"filer/internal/mover"
	"filer/internal/scanner"
	"filer/internal/services"
)

type matchedFile struct {
	entry scanner.FileEntry
	match matcher.MatchResult
}

// partition splits incoming files into similarity hits and files for the
// classifier.
func (s *run) partition(ctx context.Context, files []scanner.FileEntry, knownFiles []string) ([]matchedFile, []scanner.FileEntry) {
	m := matcher.New(s.cfg.Matching.SimilarityThreshold)
	logger := logging.WithContext(services.WithStage(ctx, "matching"), s.logger)

	var hits []matchedFile
	var rest []scanner.FileEntry
	for _, entry := range files {
		result, hit := m.Match(entry.Name, knownFiles)
		if hit {
			hits = append(hits, matchedFile{entry: entry, match: result})
			logger.Debug("similarity hit",
				logging.String(logging.FieldFile, entry.Name),
				logging.String("matched_file", result.CandidateFile),
				logging.Float64("score", result.Score),
			)
			continue
		}
		rest = append(rest, entry)
	}
	logger.Info("matching complete",
		logging.Int("similarity_hits", len(hits)),
		logging.Int("for_classifier", len(rest)),
		logging.Float64("threshold", m.Threshold),
	)
	return hits, rest
}

func (s *run) moveMatches(ctx context.Context, hits []matchedFile) {
	ctx = services.WithStage(ctx, "moving_matches")
	for _, hit := range hits {
		result := s.move(ctx, hit.entry, hit.match.CandidateDir, MethodSimilarity)
		result.MatchedFile = hit.match.CandidateFile
		result.Score = hit.match.Score
		s.record(ctx, result)
	}
}

// classifyAndMove sends files to the classifier batch by batch and applies
// each batch's moves before building the next request.
func (s *run) classifyAndMove(ctx context.Context, files []scanner.FileEntry) error {
	if len(files) == 0 {
		return nil
	}
	if s.classifier == nil {
		err := services.Wrap(services.ErrConfiguration, "classify", "adapter", "No classifier configured", nil)
		for _, entry := range files {
			s.record(ctx, s.failed(entry, MethodAI, err))
		}
		return nil
	}

	batches := chunk(files, s.cfg.Classifier.BatchSize)
	pacer := newPacer(time.Duration(s.cfg.Classifier.BatchDelayMS) * time.Millisecond)
	for i, batch := range batches {
		batchCtx := services.WithStage(services.WithBatch(ctx, i+1), "classifying")
		if err := pacer.Wait(batchCtx); err != nil {
			s.failRemaining(ctx, batches[i:], err)
			return err
		}
		s.report.Batches++
		err := s.runBatch(batchCtx, i+1, batch)
		switch {
		case err == nil:
		case isCancellation(err):
			s.failRemaining(ctx, batches[i+1:], err)
			return err
		case services.AbortsRun(err):
			// Later batches would hit the same settings problem.
			logging.WarnWithContext(logging.WithContext(batchCtx, s.logger), "skipping remaining classifier batches", "classifier_batches_skipped",
				logging.Int("batches", len(batches)-i-1),
				logging.String(logging.FieldErrorHint, "run `filer doctor` to check classifier settings"),
				logging.String(logging.FieldImpact, "unmatched files stay in incoming_dir"),
			)
			s.failRemaining(ctx, batches[i+1:], err)
			return nil
		}
	}
	return nil
}

func (s *run) failRemaining(ctx context.Context, batches [][]scanner.FileEntry, err error) {
	for _, remaining := range batches {
		for _, entry := range remaining {
			s.record(ctx, s.failed(entry, MethodAI, err))
		}
	}
}

func (s *run) runBatch(ctx context.Context, number int, batch []scanner.FileEntry) error {
	logger := logging.WithContext(ctx, s.logger)

	paths := make([]string, len(batch))
	for i, entry := range batch {
		paths[i] = entry.AbsolutePath
	}
	var descriptions []string
	if s.describer != nil {
		descriptions = s.describer.DescribeAll(ctx, paths)
	}
	items := make([]classifier.Item, len(batch))
	for i, entry := range batch {
		items[i] = classifier.Item{FileName: entry.Name}
		if i < len(descriptions) {
			items[i].Description = descriptions[i]
		}
	}

	knownDirs := s.registry.Snapshot()
	logger.Info("classifying batch",
		logging.Int("files", len(items)),
		logging.Int("known_dirs", len(knownDirs)),
	)
	result, err := s.classifier.ClassifyBatch(ctx, items, knownDirs)
	if err != nil {
		s.report.FailedBatches++
		logging.ErrorWithContext(logger, "classifier batch failed", "classifier_batch_failed",
			logging.Error(err),
			logging.Int("files", len(batch)),
			logging.String(logging.FieldErrorHint, "check classifier credentials and connectivity; files stay in incoming_dir"),
		)
		for _, entry := range batch {
			failed := s.failed(entry, MethodAI, err)
			failed.Batch = number
			s.record(ctx, failed)
		}
		return err
	}

	moveCtx := services.WithStage(ctx, "moving_ai_results")
	for i, entry := range batch {
		classified := classifier.Result{
			FileName:       entry.Name,
			Path:           s.classifier.DefaultBucket(),
			Fallback:       true,
			FallbackReason: classifier.ReasonMissing,
		}
		if i < len(result.Results) {
			classified = result.Results[i]
		}
		moved := s.move(moveCtx, entry, classified.Path, MethodAI)
		moved.Batch = number
		moved.Confidence = classified.Confidence
		moved.Reasoning = classified.Reasoning
		moved.FallbackReason = classified.FallbackReason
		s.record(moveCtx, moved)
	}
	return nil
}

func (s *run) move(ctx context.Context, entry scanner.FileEntry, targetDir, method string) Result {
	ctx = services.WithFile(ctx, entry.Name)
	out := s.mover.Move(ctx, mover.Request{Source: entry.AbsolutePath, TargetDir: targetDir, Method: method})
	result := Result{
		File:         entry.Name,
		Source:       entry.AbsolutePath,
		Method:       method,
		Status:       out.Status,
		TargetDir:    targetDir,
		FinalPath:    out.FinalPath,
		RelativePath: out.RelativePath,
		Renamed:      out.Renamed,
		CrossDevice:  out.CrossDevice,
		Attempts:     out.Attempts,
	}
	if out.Err != nil {
		result.err = out.Err
		result.Error = out.Err.Error()
		result.ErrorKind = services.FailureKind(out.Err)
	}
	return result
}

func (s *run) failed(entry scanner.FileEntry, method string, err error) Result {
	return Result{
		File:      entry.Name,
		Source:    entry.AbsolutePath,
		Method:    method,
		Status:    mover.StatusFailed,
		ErrorKind: services.FailureKind(err),
		Error:     err.Error(),
		err:       err,
	}
}

func (s *run) record(ctx context.Context, result Result) {
	s.report.add(result)
	if s.journal == nil {
		return
	}
	err := s.journal.RecordMove(context.WithoutCancel(ctx), history.Move{
		RunID:        s.report.RunID,
		Source:       result.Source,
		FinalPath:    result.FinalPath,
		Method:       result.Method,
		Status:       string(result.Status),
		ErrorKind:    result.ErrorKind,
		ErrorMessage: result.Error,
		RecordedAt:   s.now(),
	})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "failed to journal move", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldFile, result.File),
			logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			logging.String(logging.FieldImpact, "move missing from filer history"),
		)
	}
}

func chunk(files []scanner.FileEntry, size int) [][]scanner.FileEntry {
	if size <= 0 {
		size = 1
	}
	var out [][]scanner.FileEntry
	for start := 0; start < len(files); start += size {
		end := min(start+size, len(files))
		out = append(out, files[start:end])
	}
	return out
}
