package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"imageResizer/api/database"
	workercache "imageResizer/worker/cache"
	"imageResizer/worker/models"
)

// BatchCache reads and writes the entries the worker updates as a batch
// progresses, using the worker's keys and TTL.
type BatchCache struct {
	cache *database.Cache
}

func NewBatchCache(cache *database.Cache) *BatchCache {
	return &BatchCache{cache: cache}
}

func (bc *BatchCache) GetStatus(ctx context.Context, batchID string) (models.BatchStatus, error) {
	data, err := bc.cache.Get(ctx, workercache.StatusKey(batchID))
	if err != nil {
		return "", err
	}
	return models.BatchStatus(data), nil
}

func (bc *BatchCache) SetStatus(ctx context.Context, batchID string, status models.BatchStatus) error {
	return bc.cache.Set(ctx, workercache.StatusKey(batchID), string(status), workercache.EntryTTL)
}

func (bc *BatchCache) GetReport(ctx context.Context, batchID string) (*models.ReportView, error) {
	data, err := bc.cache.Get(ctx, workercache.ReportKey(batchID))
	if err != nil {
		return nil, err
	}

	var report models.ReportView
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	return &report, nil
}
