package transaction

import (
	"context"
	"testing"
	"time"
)

const testWalletID = "22222222-2222-4222-8222-222222222222"

func seedEntries(t *testing.T, repo Repository) []string {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	entries := []Transaction{
		{WalletID: testWalletID, Type: TypeCredit, Amount: 1_000_000, BalanceAfter: 1_000_000, Description: "Salary payment", CreatedAt: base},
		{WalletID: testWalletID, Type: TypeDebit, Amount: 305_000, BalanceAfter: 695_000, Description: "rent", CreatedAt: base.Add(time.Hour)},
		{WalletID: testWalletID, Type: TypeDebit, Amount: 50_000, BalanceAfter: 645_000, CreatedAt: base.Add(2 * time.Hour)},
		{WalletID: testWalletID, Type: TypeCredit, Amount: 20_000, BalanceAfter: 665_000, Description: "refund for rental deposit", CreatedAt: base.Add(26 * time.Hour)},
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		id, err := repo.Append(ctx, e)
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestQueryDefaultsNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntries(t, repo)

	items, total, err := repo.Query(context.Background(), Query{WalletID: testWalletID, Limit: 10})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected total 4, got %d", total)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].CreatedAt.After(items[i-1].CreatedAt) {
			t.Fatalf("items not ordered newest first at index %d", i)
		}
	}
}

func TestQueryPaginationTotalIndependentOfPage(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntries(t, repo)

	items, total, err := repo.Query(context.Background(), Query{WalletID: testWalletID, Skip: 1, Limit: 2})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected page of 2, got %d", len(items))
	}
	if total != 4 {
		t.Fatalf("expected total 4 independent of page size, got %d", total)
	}

	items, total, err = repo.Query(context.Background(), Query{WalletID: testWalletID, Skip: 10, Limit: 2})
	if err != nil {
		t.Fatalf("query past end: %v", err)
	}
	if len(items) != 0 || total != 4 {
		t.Fatalf("expected empty page with total 4, got %d items total %d", len(items), total)
	}
}

func TestQuerySearchIsCaseInsensitiveAndSkipsEmptyDescriptions(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntries(t, repo)

	items, total, err := repo.Query(context.Background(), Query{WalletID: testWalletID, Limit: 10, Search: "RENT"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 matches, got %d", total)
	}
	for _, item := range items {
		if item.Description == "" {
			t.Fatalf("search matched an entry without a description")
		}
	}
}

func TestQuerySearchMatchesWildcardCharactersLiterally(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntries(t, repo)
	ctx := context.Background()

	entry := Transaction{WalletID: testWalletID, Type: TypeDebit, Amount: 10_000, BalanceAfter: 635_000,
		Description: "coupon 50%_off", CreatedAt: time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)}
	if _, err := repo.Append(ctx, entry); err != nil {
		t.Fatalf("append: %v", err)
	}

	// "%" and "_" are ordinary characters in a search term, not wildcards.
	items, total, err := repo.Query(ctx, Query{WalletID: testWalletID, Limit: 10, Search: "50%_off"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].Description != "coupon 50%_off" {
		t.Fatalf("expected only the literal match, got %d items total %d", len(items), total)
	}

	if _, total, err = repo.Query(ctx, Query{WalletID: testWalletID, Limit: 10, Search: "%"}); err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected a bare %% to match only descriptions containing one, got %d", total)
	}
}

func TestQueryTypeFilter(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntries(t, repo)

	_, total, err := repo.Query(context.Background(), Query{WalletID: testWalletID, Limit: 10, Type: TypeDebit})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 debits, got %d", total)
	}
}

func TestQueryDateBoundsNormalizeToCalendarDay(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntries(t, repo)

	// Bounds given mid-day must still cover the whole calendar day.
	day := time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)
	_, total, err := repo.Query(context.Background(), Query{WalletID: testWalletID, Limit: 10, From: &day, To: &day})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 entries on 2025-03-10, got %d", total)
	}

	next := day.Add(24 * time.Hour)
	_, total, err = repo.Query(context.Background(), Query{WalletID: testWalletID, Limit: 10, From: &next, To: &next})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 entry on 2025-03-11, got %d", total)
	}
}

func TestQuerySortByAmountAscending(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntries(t, repo)

	items, _, err := repo.Query(context.Background(), Query{WalletID: testWalletID, Limit: 10, SortBy: SortByAmount, Order: OrderAsc})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for i := 1; i < len(items); i++ {
		if items[i].Amount < items[i-1].Amount {
			t.Fatalf("items not ordered by ascending amount at index %d", i)
		}
	}
}

func TestSummaryAggregates(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntries(t, repo)

	s, err := repo.Summary(context.Background(), testWalletID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalCredits != 1_020_000 {
		t.Fatalf("expected credits 1020000, got %d", s.TotalCredits)
	}
	if s.TotalDebits != 355_000 {
		t.Fatalf("expected debits 355000, got %d", s.TotalDebits)
	}
	if s.TotalTransactions != 4 {
		t.Fatalf("expected 4 transactions, got %d", s.TotalTransactions)
	}
}

func TestEntriesAreImmutableAfterAppend(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntries(t, repo)
	ctx := context.Background()

	before, _, err := repo.Query(ctx, Query{WalletID: testWalletID, Limit: 10})
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	// Mutating a returned page must not affect later reads.
	before[0].Amount = 42
	before[0].Type = TypeDebit
	before[0].BalanceAfter = -1

	after, _, err := repo.Query(ctx, Query{WalletID: testWalletID, Limit: 10})
	if err != nil {
		t.Fatalf("requery: %v", err)
	}
	if after[0].Amount == 42 || after[0].BalanceAfter == -1 {
		t.Fatalf("stored entry mutated through a returned page")
	}
}
