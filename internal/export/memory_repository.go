package export

import (
	"context"
	"sync"
	"time"
)

type memoryJobRepository struct {
	mu      sync.RWMutex
	ttl     time.Duration
	storage map[string]Job
}

// NewMemoryJobRepository constructs an in-memory job repository for tests and
// dev mode. Expiry is enforced on read and by PurgeExpired, mirroring the
// Redis TTL plus sweep combination.
func NewMemoryJobRepository(ttl time.Duration) JobRepository {
	return &memoryJobRepository{ttl: ttl, storage: make(map[string]Job)}
}

func (r *memoryJobRepository) Put(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[job.ID] = job
	return nil
}

func (r *memoryJobRepository) Get(_ context.Context, id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.storage[id]
	if !ok || time.Since(job.CreatedAt) >= r.ttl {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

func (r *memoryJobRepository) PurgeExpired(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	purged := 0
	for id, job := range r.storage {
		if job.CreatedAt.Before(cutoff) {
			delete(r.storage, id)
			purged++
		}
	}
	return purged, nil
}
