package transaction

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu      sync.RWMutex
	entries []Transaction
}

// NewMemoryRepository constructs an in-memory append-only log for tests and
// dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Append(_ context.Context, t Transaction) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, t)
	return t.ID, nil
}

func (r *memoryRepository) Query(_ context.Context, q Query) ([]Transaction, int64, error) {
	q = q.withDefaults()

	r.mu.RLock()
	matched := make([]Transaction, 0, len(r.entries))
	for _, t := range r.entries {
		if matches(t, q) {
			matched = append(matched, t)
		}
	}
	r.mu.RUnlock()

	sortEntries(matched, q.SortBy, q.Order)

	total := int64(len(matched))
	if q.Skip >= len(matched) {
		return []Transaction{}, total, nil
	}
	end := q.Skip + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	page := make([]Transaction, end-q.Skip)
	copy(page, matched[q.Skip:end])
	return page, total, nil
}

func (r *memoryRepository) FindAll(_ context.Context, walletID string) ([]Transaction, error) {
	r.mu.RLock()
	items := make([]Transaction, 0)
	for _, t := range r.entries {
		if t.WalletID == walletID {
			items = append(items, t)
		}
	}
	r.mu.RUnlock()

	sortEntries(items, SortByDate, OrderDesc)
	return items, nil
}

func (r *memoryRepository) Summary(_ context.Context, walletID string) (Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s Summary
	for _, t := range r.entries {
		if t.WalletID != walletID {
			continue
		}
		s.TotalTransactions++
		switch t.Type {
		case TypeCredit:
			s.TotalCredits += t.Amount
		case TypeDebit:
			s.TotalDebits += t.Amount
		}
	}
	return s, nil
}

func matches(t Transaction, q Query) bool {
	if t.WalletID != q.WalletID {
		return false
	}
	if q.Type != "" && t.Type != q.Type {
		return false
	}
	if q.Search != "" {
		if t.Description == "" {
			return false
		}
		if !strings.Contains(strings.ToLower(t.Description), strings.ToLower(q.Search)) {
			return false
		}
	}
	if q.From != nil && t.CreatedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && t.CreatedAt.After(*q.To) {
		return false
	}
	return true
}

func sortEntries(items []Transaction, field SortField, order SortOrder) {
	sort.SliceStable(items, func(i, j int) bool {
		var less bool
		switch field {
		case SortByAmount:
			less = items[i].Amount < items[j].Amount
		default:
			less = items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		if order == OrderDesc {
			return !less && !equalKey(items[i], items[j], field)
		}
		return less
	})
}

func equalKey(a, b Transaction, field SortField) bool {
	if field == SortByAmount {
		return a.Amount == b.Amount
	}
	return a.CreatedAt.Equal(b.CreatedAt)
}
