// Package ledger orchestrates money movement: every successful transact call
// adjusts the wallet balance through the store's conditional write first, then
// appends an immutable transaction entry recording the confirmed balance.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arpit-jain4999/wallet-ledger/internal/money"
	"github.com/arpit-jain4999/wallet-ledger/internal/transaction"
	"github.com/arpit-jain4999/wallet-ledger/internal/wallet"
)

var (
	// ErrInsufficientFunds occurs when a debit loses the conditional write
	// against the wallet's persisted balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidRange occurs when a list query's from date is after its to date.
	ErrInvalidRange = errors.New("invalid date range")
)

// Service coordinates the wallet store and the transaction log.
type Service struct {
	wallets wallet.Repository
	txns    transaction.Repository
}

// NewService builds a ledger service instance.
func NewService(wallets wallet.Repository, txns transaction.Repository) *Service {
	return &Service{wallets: wallets, txns: txns}
}

// TransactResult reports the store-confirmed balance and the appended entry.
type TransactResult struct {
	Balance       int64
	TransactionID string
}

// Transact applies a signed decimal amount to a wallet. A non-negative amount
// credits its magnitude, a negative amount debits it. Validation happens
// before any store access. The balance mutation goes through the store's
// atomic conditional adjust; only after it succeeds is the transaction entry
// appended, carrying the balance the store returned. A rejected adjust is
// never retried here: retrying could double-apply if the failure was a
// transient network error after a committed write.
func (s *Service) Transact(ctx context.Context, walletID, amount, description string) (TransactResult, error) {
	minor, err := money.Parse(amount)
	if err != nil {
		return TransactResult{}, err
	}
	if minor == 0 {
		return TransactResult{}, fmt.Errorf("%w: amount must not be zero", money.ErrInvalidAmount)
	}

	kind := transaction.TypeCredit
	magnitude := minor
	delta := minor
	minBalance := int64(0)
	if minor < 0 {
		kind = transaction.TypeDebit
		magnitude = -minor
		minBalance = magnitude
	}

	updated, err := s.wallets.Adjust(ctx, walletID, delta, minBalance)
	if err != nil {
		if !errors.Is(err, wallet.ErrAdjustRejected) {
			return TransactResult{}, err
		}
		if kind == transaction.TypeCredit {
			// A credit has no precondition, so rejection means the wallet
			// is absent.
			return TransactResult{}, wallet.ErrNotFound
		}
		// The conditional write cannot say whether the wallet was absent or
		// underfunded. Probe existence to pick the error message; the
		// rejection itself already decided the outcome.
		if _, probeErr := s.wallets.Get(ctx, walletID); errors.Is(probeErr, wallet.ErrNotFound) {
			return TransactResult{}, wallet.ErrNotFound
		}
		return TransactResult{}, ErrInsufficientFunds
	}

	id, err := s.txns.Append(ctx, transaction.Transaction{
		WalletID:     walletID,
		Type:         kind,
		Amount:       magnitude,
		BalanceAfter: updated.Balance,
		Description:  description,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		// The balance committed but the log entry did not. Reconciliation
		// from the transaction log is the recovery path for this gap.
		return TransactResult{}, fmt.Errorf("append transaction after balance commit: %w", err)
	}

	return TransactResult{Balance: updated.Balance, TransactionID: id}, nil
}

// ListTransactions validates the range, confirms the wallet exists and
// delegates the filtered page read to the transaction store.
func (s *Service) ListTransactions(ctx context.Context, q transaction.Query) ([]transaction.Transaction, int64, error) {
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, 0, fmt.Errorf("%w: from %s is after to %s", ErrInvalidRange,
			q.From.Format("2006-01-02"), q.To.Format("2006-01-02"))
	}
	if _, err := s.wallets.Get(ctx, q.WalletID); err != nil {
		return nil, 0, err
	}
	return s.txns.Query(ctx, q)
}

// GetSummary confirms the wallet exists and returns the store-side aggregate.
func (s *Service) GetSummary(ctx context.Context, walletID string) (transaction.Summary, error) {
	if _, err := s.wallets.Get(ctx, walletID); err != nil {
		return transaction.Summary{}, err
	}
	return s.txns.Summary(ctx, walletID)
}
