package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the append-only transaction log. There is no update or
// delete path: entries are immutable once appended.
type Repository interface {
	Append(ctx context.Context, t Transaction) (string, error)
	Query(ctx context.Context, q Query) ([]Transaction, int64, error)
	FindAll(ctx context.Context, walletID string) ([]Transaction, error)
	Summary(ctx context.Context, walletID string) (Summary, error)
}

// PostgresRepository stores transactions in PostgreSQL with a compound index
// on (wallet_id, created_at) backing the common query pattern.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts one ledger entry and returns its generated identifier.
func (r *PostgresRepository) Append(ctx context.Context, t Transaction) (string, error) {
	walletID, err := uuid.Parse(t.WalletID)
	if err != nil {
		return "", err
	}
	id := uuid.New()
	var description *string
	if t.Description != "" {
		description = &t.Description
	}
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = r.db.Exec(ctx, `INSERT INTO transactions (id, wallet_id, type, amount, balance_after, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, walletID, string(t.Type), t.Amount, t.BalanceAfter, description, createdAt.UTC())
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Query returns one page plus the total count over the same filter. The count
// runs as an independent query so it stays correct regardless of page size.
func (r *PostgresRepository) Query(ctx context.Context, q Query) ([]Transaction, int64, error) {
	q = q.withDefaults()

	where, args, err := buildFilter(q)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	countSQL := "SELECT COUNT(*) FROM transactions WHERE " + where
	if err := r.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	column := "created_at"
	if q.SortBy == SortByAmount {
		column = "amount"
	}
	direction := "DESC"
	if q.Order == OrderAsc {
		direction = "ASC"
	}

	pageSQL := fmt.Sprintf(`SELECT id, wallet_id, type, amount, balance_after, description, created_at
        FROM transactions WHERE %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		where, column, direction, direction, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Skip)

	rows, err := r.db.Query(ctx, pageSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Transaction, 0, q.Limit)
	for rows.Next() {
		var t Transaction
		var id, walletID uuid.UUID
		var kind string
		var description *string
		var createdAt time.Time
		if err := rows.Scan(&id, &walletID, &kind, &t.Amount, &t.BalanceAfter, &description, &createdAt); err != nil {
			return nil, 0, err
		}
		t.ID = id.String()
		t.WalletID = walletID.String()
		t.Type = Type(kind)
		if description != nil {
			t.Description = *description
		}
		t.CreatedAt = createdAt.UTC()
		items = append(items, t)
	}
	return items, total, rows.Err()
}

// FindAll returns the full ledger for a wallet ordered newest first. Only the
// synchronous export path uses it; paginated reads go through Query.
func (r *PostgresRepository) FindAll(ctx context.Context, walletID string) ([]Transaction, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, wallet_id, type, amount, balance_after, description, created_at
        FROM transactions WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Transaction
	for rows.Next() {
		var t Transaction
		var txID, wID uuid.UUID
		var kind string
		var description *string
		var createdAt time.Time
		if err := rows.Scan(&txID, &wID, &kind, &t.Amount, &t.BalanceAfter, &description, &createdAt); err != nil {
			return nil, err
		}
		t.ID = txID.String()
		t.WalletID = wID.String()
		t.Type = Type(kind)
		if description != nil {
			t.Description = *description
		}
		t.CreatedAt = createdAt.UTC()
		items = append(items, t)
	}
	return items, rows.Err()
}

// Summary aggregates credits, debits and the entry count server-side.
func (r *PostgresRepository) Summary(ctx context.Context, walletID string) (Summary, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return Summary{}, err
	}
	const query = `
        SELECT
            COALESCE(SUM(amount) FILTER (WHERE type = 'CREDIT'), 0),
            COALESCE(SUM(amount) FILTER (WHERE type = 'DEBIT'), 0),
            COUNT(*)
        FROM transactions WHERE wallet_id = $1`
	var s Summary
	if err := r.db.QueryRow(ctx, query, id).Scan(&s.TotalCredits, &s.TotalDebits, &s.TotalTransactions); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// likeEscaper neutralizes LIKE metacharacters so a search term matches
// literally, the same way the in-memory store's substring match does.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildFilter(q Query) (string, []any, error) {
	walletID, err := uuid.Parse(q.WalletID)
	if err != nil {
		return "", nil, err
	}
	clauses := []string{"wallet_id = $1"}
	args := []any{walletID}

	if q.Type != "" {
		args = append(args, string(q.Type))
		clauses = append(clauses, fmt.Sprintf("type = $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(q.Search)+"%")
		clauses = append(clauses, fmt.Sprintf(`description IS NOT NULL AND description ILIKE $%d ESCAPE '\'`, len(args)))
	}
	if q.From != nil {
		args = append(args, *q.From)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if q.To != nil {
		args = append(args, *q.To)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args, nil
}
