package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"imageResizer/worker/models"
)

// EntryTTL bounds how long batch status and report entries live. The API
// writes the same keys with the same TTL.
const EntryTTL = 24 * time.Hour

func StatusKey(batchID string) string { return "batch:status:" + batchID }

func ReportKey(batchID string) string { return "batch:report:" + batchID }

type StatusCache struct {
	client *redis.Client
}

func NewStatusCache(client *redis.Client) *StatusCache {
	return &StatusCache{client: client}
}

func (c *StatusCache) SetStatus(ctx context.Context, batchID string, status models.BatchStatus) error {
	return c.client.Set(ctx, StatusKey(batchID), string(status), EntryTTL).Err()
}

func (c *StatusCache) SetReport(ctx context.Context, batchID string, report []byte) error {
	return c.client.Set(ctx, ReportKey(batchID), report, EntryTTL).Err()
}
