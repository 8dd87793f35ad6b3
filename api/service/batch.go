package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imageResizer/api/dto"
	"imageResizer/api/kafka"
	"imageResizer/api/models"
	"imageResizer/api/repository"
	workermodels "imageResizer/worker/models"
)

const timeLayout = "2006-01-02T15:04:05Z"

// Runner executes a batch in-process.
type Runner interface {
	Run(ctx context.Context, req workermodels.Request) (*workermodels.BatchReport, error)
}

type StatusCache interface {
	GetStatus(ctx context.Context, batchID string) (workermodels.BatchStatus, error)
	SetStatus(ctx context.Context, batchID string, status workermodels.BatchStatus) error
	GetReport(ctx context.Context, batchID string) (*workermodels.ReportView, error)
}

type BatchService struct {
	runner   Runner
	repo     repository.Repository
	cache    StatusCache
	producer kafka.Producer
	topic    string
	logger   *zap.Logger
}

func NewBatchService(runner Runner, repo repository.Repository, cache StatusCache, producer kafka.Producer, topic string, logger *zap.Logger) *BatchService {
	return &BatchService{
		runner:   runner,
		repo:     repo,
		cache:    cache,
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Resize runs the batch synchronously and returns its report.
func (s *BatchService) Resize(ctx context.Context, req *dto.ResizeRequest) (*workermodels.ReportView, error) {
	report, err := s.runner.Run(ctx, req.ToModel())
	if err != nil {
		return nil, err
	}
	return workermodels.NewReportView(report), nil
}

// Submit records the batch and queues it for the worker.
func (s *BatchService) Submit(ctx context.Context, traceID string, req *dto.ResizeRequest) (*dto.BatchResponse, error) {
	batch := &models.Batch{
		ID:      uuid.New().String(),
		TraceID: traceID,
		Request: req.ToModel(),
		Status:  workermodels.BatchPending,
	}

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	if err := s.cache.SetStatus(ctx, batch.ID, workermodels.BatchPending); err != nil {
		s.logger.Warn("Failed to cache batch status",
			zap.String("batch_id", batch.ID),
			zap.Error(err),
		)
	}

	msg := &kafka.BatchMessage{
		BatchID: batch.ID,
		TraceID: traceID,
		Request: batch.Request,
	}
	if err := s.producer.SendBatchMessage(ctx, s.topic, msg); err != nil {
		return nil, fmt.Errorf("queue batch: %w", err)
	}

	return s.toResponse(batch, nil), nil
}

// GetBatch prefers the cache and falls back to the repository. Failed
// batches always come from the repository, which holds the error message.
func (s *BatchService) GetBatch(ctx context.Context, batchID string) (*dto.BatchResponse, error) {
	status, err := s.cache.GetStatus(ctx, batchID)
	if err == nil {
		switch status {
		case workermodels.BatchPending, workermodels.BatchProcessing:
			return &dto.BatchResponse{ID: batchID, Status: string(status)}, nil
		case workermodels.BatchCompleted:
			if report, err := s.cache.GetReport(ctx, batchID); err == nil {
				return &dto.BatchResponse{ID: batchID, Status: string(status), Report: report}, nil
			}
		}
	}

	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			return nil, dto.ErrBatchNotFound
		}
		return nil, err
	}

	if err := s.cache.SetStatus(ctx, batch.ID, batch.Status); err != nil {
		s.logger.Warn("Failed to cache batch status",
			zap.String("batch_id", batch.ID),
			zap.Error(err),
		)
	}

	var report *workermodels.ReportView
	if len(batch.Report) > 0 {
		report = &workermodels.ReportView{}
		if err := json.Unmarshal(batch.Report, report); err != nil {
			return nil, fmt.Errorf("decode stored report: %w", err)
		}
	}

	return s.toResponse(batch, report), nil
}

func (s *BatchService) toResponse(batch *models.Batch, report *workermodels.ReportView) *dto.BatchResponse {
	var completedAt *string
	if batch.CompletedAt != nil {
		formatted := batch.CompletedAt.Format(timeLayout)
		completedAt = &formatted
	}

	var createdAt string
	if !batch.CreatedAt.IsZero() {
		createdAt = batch.CreatedAt.Format(timeLayout)
	}

	return &dto.BatchResponse{
		ID:           batch.ID,
		TraceID:      batch.TraceID,
		Status:       string(batch.Status),
		ErrorMessage: batch.ErrorMessage,
		CreatedAt:    createdAt,
		CompletedAt:  completedAt,
		Report:       report,
	}
}
