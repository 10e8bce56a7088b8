package wallet

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.Mutex
	storage map[string]Wallet
}

// NewMemoryRepository constructs an in-memory repository. The mutex stands in
// for the database's per-row serialization of conditional adjusts.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Wallet)}
}

func (r *memoryRepository) Create(_ context.Context, w Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[w.ID]; exists {
		return ErrExists
	}
	r.storage[w.ID] = w
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.storage[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

func (r *memoryRepository) Adjust(_ context.Context, id string, delta, minBalance int64) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.storage[id]
	if !ok || w.Balance < minBalance {
		return Wallet{}, ErrAdjustRejected
	}
	w.Balance += delta
	w.UpdatedAt = time.Now().UTC()
	r.storage[id] = w
	return w, nil
}
