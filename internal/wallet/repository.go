package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound occurs when no wallet exists for the requested identifier.
	ErrNotFound = errors.New("wallet not found")

	// ErrExists occurs when a wallet identifier is already taken.
	ErrExists = errors.New("wallet exists")

	// ErrAdjustRejected indicates a conditional balance adjustment did not
	// apply, either because the wallet is absent or because the minimum
	// balance precondition failed. The store cannot tell the two apart.
	ErrAdjustRejected = errors.New("balance adjustment rejected")
)

// Repository persists wallet records. Adjust is the only write path for the
// balance: it applies delta iff the currently persisted balance is at least
// minBalance, as one indivisible operation against the store. It returns the
// post-adjustment record, or ErrAdjustRejected without distinguishing an
// absent wallet from a failed precondition.
type Repository interface {
	Create(ctx context.Context, w Wallet) error
	Get(ctx context.Context, id string) (Wallet, error)
	Adjust(ctx context.Context, id string, delta, minBalance int64) (Wallet, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, w Wallet) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (id, name, balance, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)`, walletID, w.Name, w.Balance, w.CreatedAt.UTC(), w.UpdatedAt.UTC())
	return err
}

// Get fetches a wallet by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, name, balance, created_at, updated_at
        FROM wallets WHERE id = $1`, walletID)
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, ErrNotFound
	}
	return w, err
}

// Adjust applies the delta in a single conditional UPDATE so the precondition
// check and the write happen against the same persisted value. Concurrent
// adjusts against one wallet are serialized by the database row lock.
func (r *PostgresRepository) Adjust(ctx context.Context, id string, delta, minBalance int64) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrAdjustRejected
	}
	row := r.db.QueryRow(ctx, `UPDATE wallets
        SET balance = balance + $2, updated_at = $4
        WHERE id = $1 AND balance >= $3
        RETURNING id, name, balance, created_at, updated_at`,
		walletID, delta, minBalance, time.Now().UTC())
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, ErrAdjustRejected
	}
	return w, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (Wallet, error) {
	var w Wallet
	var id uuid.UUID
	var createdAt, updatedAt time.Time
	if err := row.Scan(&id, &w.Name, &w.Balance, &createdAt, &updatedAt); err != nil {
		return Wallet{}, err
	}
	w.ID = id.String()
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updatedAt.UTC()
	return w, nil
}
