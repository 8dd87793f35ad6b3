package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imageResizer/worker/converter"
	"imageResizer/worker/models"
	"imageResizer/worker/planner"
	"imageResizer/worker/pool"
	"imageResizer/worker/validation"
)

var ErrSourceNotFound = errors.New("input folder does not exist")

const (
	msgResized     = "Image resized successfully."
	msgExists      = "File already exists, skipping."
	msgUnsupported = "Unsupported file format."
)

type batchIDKey struct{}

// WithBatchID makes Run report under id instead of generating one.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey{}, id)
}

func batchIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(batchIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// Coordinator runs a batch: it enumerates the input folder, processes every
// eligible file on a bounded pool and assembles the report.
type Coordinator struct {
	converter   *converter.Converter
	observer    Observer
	logger      *zap.Logger
	maxInFlight int
}

func NewCoordinator(conv *converter.Converter, observer Observer, logger *zap.Logger, maxInFlight int) *Coordinator {
	if observer == nil {
		observer = NewLogObserver(logger)
	}
	return &Coordinator{
		converter:   conv,
		observer:    observer,
		logger:      logger,
		maxInFlight: maxInFlight,
	}
}

// Run processes req and returns one outcome per directory entry. Only a
// missing or unreadable input folder fails the batch; per-file problems are
// recorded as outcomes. Once files are dispatched the batch runs to
// completion even if ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context, req models.Request) (*models.BatchReport, error) {
	start := time.Now()
	batchID := batchIDFrom(ctx)
	logger := c.logger.With(zap.String("batch_id", batchID))

	info, err := os.Stat(req.InputDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, req.InputDir)
		}
		return nil, fmt.Errorf("stat input folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSourceNotFound, req.InputDir)
	}

	entries, err := os.ReadDir(req.InputDir)
	if err != nil {
		return nil, fmt.Errorf("read input folder: %w", err)
	}

	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		logger.Warn("Cannot create output folder",
			zap.String("path", req.OutputDir),
			zap.Error(err),
		)
	}

	logger.Info("Batch started",
		zap.String("input", req.InputDir),
		zap.String("output", req.OutputDir),
		zap.Int("entries", len(entries)),
	)

	results := newOutcomeSet(len(entries))
	record := func(o models.Outcome) {
		results.add(o)
		c.observer.Observe(batchID, o)
	}

	constraints := planner.Constraints{
		Width:           req.Width,
		Height:          req.Height,
		KeepAspectRatio: req.KeepAspectRatio,
	}

	workers := pool.NewWorkerPool(c.maxInFlight)
	runCtx := context.WithoutCancel(ctx)

	for _, entry := range entries {
		sourcePath := filepath.Join(req.InputDir, entry.Name())

		if !validation.HasAllowedExtension(entry.Name()) {
			record(models.Unsupported{
				SourcePath: sourcePath,
				Reason:     msgUnsupported,
				Timestamp:  time.Now(),
			})
			continue
		}

		task := models.FileTask{
			SourcePath:      sourcePath,
			DestinationPath: filepath.Join(req.OutputDir, entry.Name()),
			DiscoveredAt:    time.Now(),
		}
		workers.Submit(runCtx, func(ctx context.Context) {
			record(c.processFile(task, constraints, req.Overwrite))
		})
	}

	workers.Wait()

	report := &models.BatchReport{
		BatchID:   batchID,
		OutputDir: req.OutputDir,
		Elapsed:   time.Since(start),
		Outcomes:  results.sorted(),
	}

	counts := report.Counts()
	logger.Info("Batch completed",
		zap.Int("success", counts[models.StatusSuccess]),
		zap.Int("skipped", counts[models.StatusSkipped]),
		zap.Int("unsupported", counts[models.StatusUnsupported]),
		zap.Int("failed", counts[models.StatusError]),
		zap.Duration("duration", report.Elapsed),
	)

	return report, nil
}

// processFile produces exactly one outcome for task.
func (c *Coordinator) processFile(task models.FileTask, constraints planner.Constraints, overwrite bool) models.Outcome {
	if !overwrite {
		if _, err := os.Stat(task.DestinationPath); err == nil {
			return models.Skipped{
				SourcePath:      task.SourcePath,
				DestinationPath: task.DestinationPath,
				Reason:          msgExists,
				Timestamp:       time.Now(),
			}
		}
	}

	if _, err := validation.Sniff(task.SourcePath); err != nil {
		if errors.Is(err, validation.ErrUnsupportedFormat) {
			return models.Unsupported{
				SourcePath: task.SourcePath,
				Reason:     err.Error(),
				Timestamp:  time.Now(),
			}
		}
		return failed(task, err)
	}

	if err := constraints.Validate(); err != nil {
		return failed(task, err)
	}

	dims, err := c.converter.Convert(task.SourcePath, task.DestinationPath, constraints)
	if err != nil {
		return failed(task, err)
	}

	return models.Success{
		SourcePath:      task.SourcePath,
		DestinationPath: task.DestinationPath,
		Message:         msgResized,
		Width:           dims.Width,
		Height:          dims.Height,
		Timestamp:       time.Now(),
	}
}

func failed(task models.FileTask, err error) models.Failed {
	return models.Failed{
		SourcePath:      task.SourcePath,
		DestinationPath: task.DestinationPath,
		Err:             err,
		Timestamp:       time.Now(),
	}
}

// outcomeSet is the only state shared between workers.
type outcomeSet struct {
	mu       sync.Mutex
	outcomes []models.Outcome
}

func newOutcomeSet(capacity int) *outcomeSet {
	return &outcomeSet{outcomes: make([]models.Outcome, 0, capacity)}
}

func (s *outcomeSet) add(o models.Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.mu.Unlock()
}

func (s *outcomeSet) sorted() []models.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Outcome, len(s.outcomes))
	copy(out, s.outcomes)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Source() < out[j].Source()
	})
	return out
}
