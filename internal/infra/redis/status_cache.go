package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/infra/metrics"
)

// JobStatusCache keeps a small status+progress snapshot per job so the
// polling status endpoint does not hit Postgres on every tick. Everything
// here is best-effort: cache failures are logged at debug and swallowed, the
// store stays the source of truth.
type JobStatusCache struct {
	client RedisClient
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewJobStatusCache(client RedisClient, ttl time.Duration, logger *zerolog.Logger) *JobStatusCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &JobStatusCache{client: client, ttl: ttl, logger: logger}
}

type cachedStatus struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

func jobStatusKey(tenantID, jobID string) string {
	return fmt.Sprintf("job_status:%s:%s", tenantID, jobID)
}

func (c *JobStatusCache) Set(ctx context.Context, tenantID, jobID string, status model.JobStatus, progress int) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(cachedStatus{Status: string(status), Progress: progress})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, jobStatusKey(tenantID, jobID), raw, c.ttl); err != nil {
		c.logger.Debug().Err(err).Str("job_id", jobID).Msg("status cache set failed")
	}
}

// Get reports ok=false on miss, decode failure or any cache error.
func (c *JobStatusCache) Get(ctx context.Context, tenantID, jobID string) (model.JobStatus, int, bool) {
	if c == nil || c.client == nil {
		return "", 0, false
	}
	raw, err := c.client.Get(ctx, jobStatusKey(tenantID, jobID))
	if err != nil {
		if !errors.Is(err, Nil) {
			c.logger.Debug().Err(err).Str("job_id", jobID).Msg("status cache get failed")
		}
		metrics.IncCacheRequest("job_status", "miss")
		return "", 0, false
	}
	var cs cachedStatus
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		metrics.IncCacheRequest("job_status", "miss")
		return "", 0, false
	}
	status, err := model.ParseJobStatus(cs.Status)
	if err != nil {
		metrics.IncCacheRequest("job_status", "miss")
		return "", 0, false
	}
	metrics.IncCacheRequest("job_status", "hit")
	return status, cs.Progress, true
}

func (c *JobStatusCache) Invalidate(ctx context.Context, tenantID, jobID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, jobStatusKey(tenantID, jobID)); err != nil {
		c.logger.Debug().Err(err).Str("job_id", jobID).Msg("status cache invalidate failed")
	}
}
