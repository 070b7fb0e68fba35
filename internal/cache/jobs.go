package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amishk599/jobboard/internal/model"
)

// DefaultJobTTL is how long a job projection lives in the cache.
const DefaultJobTTL = 30 * 24 * time.Hour

// JobKey returns the cache key of a job projection.
func JobKey(id int64) string {
	return "job:" + strconv.FormatInt(id, 10)
}

// JobCache stores JSON projections of job rows under job:<id> with a TTL.
// The projection never carries application_count; that is computed on read.
type JobCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewJobCache returns a projection cache. A non-positive ttl selects DefaultJobTTL.
func NewJobCache(rdb *redis.Client, ttl time.Duration) *JobCache {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &JobCache{rdb: rdb, ttl: ttl}
}

// Put writes the projection of job, resetting its TTL.
func (c *JobCache) Put(ctx context.Context, job model.JobPosting) error {
	job.ApplicationCount = 0
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %d: %w", job.ID, err)
	}
	if err := c.rdb.Set(ctx, JobKey(job.ID), data, c.ttl).Err(); err != nil {
		return model.Transient("cache put job", err)
	}
	return nil
}

// Get returns the projection of job id. ok is false on a miss or expiry.
func (c *JobCache) Get(ctx context.Context, id int64) (job model.JobPosting, ok bool, err error) {
	data, err := c.rdb.Get(ctx, JobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.JobPosting{}, false, nil
	}
	if err != nil {
		return model.JobPosting{}, false, model.Transient("cache get job", err)
	}
	if err := json.Unmarshal(data, &job); err != nil {
		return model.JobPosting{}, false, fmt.Errorf("unmarshal cached job %d: %w", id, err)
	}
	return job, true, nil
}

// Delete evicts the projection of job id.
func (c *JobCache) Delete(ctx context.Context, id int64) error {
	return model.Transient("cache delete job", c.rdb.Del(ctx, JobKey(id)).Err())
}
