package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"imageResizer/worker/kafka"
	"imageResizer/worker/models"
)

type Repository interface {
	UpdateBatchStatus(ctx context.Context, batchID string, status models.BatchStatus, errMsg string) error
	SaveReport(ctx context.Context, batchID string, report []byte) error
}

type StatusCache interface {
	SetStatus(ctx context.Context, batchID string, status models.BatchStatus) error
	SetReport(ctx context.Context, batchID string, report []byte) error
}

// Processor executes batches received from the queue and records their
// status and report.
type Processor struct {
	repo        Repository
	cache       StatusCache
	coordinator *Coordinator
	logger      *zap.Logger
}

func NewProcessor(repo Repository, cache StatusCache, coordinator *Coordinator, logger *zap.Logger) *Processor {
	return &Processor{
		repo:        repo,
		cache:       cache,
		coordinator: coordinator,
		logger:      logger,
	}
}

// Process runs the batch and records its outcome. Status and report writes
// are detached from ctx's cancellation so a batch that started during shutdown
// still reaches a final state.
func (p *Processor) Process(ctx context.Context, msg *kafka.BatchMessage) error {
	ctx = context.WithoutCancel(ctx)
	logger := p.logger.With(
		zap.String("batch_id", msg.BatchID),
		zap.String("trace_id", msg.TraceID),
	)

	if err := p.setStatus(ctx, msg.BatchID, models.BatchProcessing, ""); err != nil {
		return err
	}

	report, err := p.coordinator.Run(WithBatchID(ctx, msg.BatchID), msg.Request)
	if err != nil {
		logger.Error("Batch failed", zap.Error(err))
		if statusErr := p.setStatus(ctx, msg.BatchID, models.BatchFailed, err.Error()); statusErr != nil {
			return statusErr
		}
		return err
	}

	data, err := json.Marshal(models.NewReportView(report))
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := p.repo.SaveReport(ctx, msg.BatchID, data); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	if err := p.cache.SetReport(ctx, msg.BatchID, data); err != nil {
		logger.Warn("Failed to cache report", zap.Error(err))
	}

	return p.setStatus(ctx, msg.BatchID, models.BatchCompleted, "")
}

// setStatus writes the repository first; the cache is best effort.
func (p *Processor) setStatus(ctx context.Context, batchID string, status models.BatchStatus, errMsg string) error {
	if err := p.repo.UpdateBatchStatus(ctx, batchID, status, errMsg); err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	if err := p.cache.SetStatus(ctx, batchID, status); err != nil {
		p.logger.Warn("Failed to cache batch status",
			zap.String("batch_id", batchID),
			zap.Error(err),
		)
	}
	return nil
}
