package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrJobNotFound occurs when no job exists for the requested identifier,
// including jobs already purged by the retention window.
var ErrJobNotFound = errors.New("export job not found")

// JobRepository persists export job state. Jobs are written whole per update;
// a job is safe to share across replicas because each id is read and written
// atomically.
type JobRepository interface {
	Put(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
}

const (
	jobKeyPrefix = "export:job:"
	jobIndexKey  = "export:jobs"
)

// RedisJobRepository stores jobs as JSON values with a TTL equal to the
// retention window, plus a created-at-scored index set that the periodic
// purge sweep walks as a backstop to the key TTL.
type RedisJobRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisJobRepository builds a job repository backed by Redis.
func NewRedisJobRepository(client *redis.Client, ttl time.Duration) *RedisJobRepository {
	return &RedisJobRepository{client: client, ttl: ttl}
}

// Put writes the full job snapshot. The TTL is anchored to CreatedAt so
// progress updates never extend a job's lifetime.
func (r *RedisJobRepository) Put(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	remaining := r.ttl - time.Since(job.CreatedAt)
	if remaining <= 0 {
		remaining = time.Second
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, jobKeyPrefix+job.ID, payload, remaining)
	pipe.ZAdd(ctx, jobIndexKey, redis.Z{Score: float64(job.CreatedAt.Unix()), Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist job %s: %w", job.ID, err)
	}
	return nil
}

// Get fetches a job by identifier.
func (r *RedisJobRepository) Get(ctx context.Context, id string) (Job, error) {
	payload, err := r.client.Get(ctx, jobKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, err
	}
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return Job{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return job, nil
}

// PurgeExpired removes jobs created before the cutoff from both the index and
// the key space, returning how many index entries were swept.
func (r *RedisJobRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	max := strconv.FormatInt(cutoff.Unix(), 10)
	ids, err := r.client.ZRangeByScore(ctx, jobIndexKey, &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = jobKeyPrefix + id
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRemRangeByScore(ctx, jobIndexKey, "-inf", max)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(ids), nil
}
