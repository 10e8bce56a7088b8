package transaction

import "time"

// Type tags the direction of a transaction.
type Type string

const (
	// TypeCredit increases the wallet balance.
	TypeCredit Type = "CREDIT"
	// TypeDebit decreases the wallet balance.
	TypeDebit Type = "DEBIT"
)

// Transaction is one immutable ledger entry. Amount is the unsigned magnitude
// in minor units; the direction lives in Type. BalanceAfter is the wallet
// balance the store confirmed immediately after this transaction committed.
type Transaction struct {
	ID           string
	WalletID     string
	Type         Type
	Amount       int64
	BalanceAfter int64
	Description  string
	CreatedAt    time.Time
}

// SortField selects the column a query orders by.
type SortField string

// SortOrder selects the direction a query orders by.
type SortOrder string

const (
	SortByDate   SortField = "date"
	SortByAmount SortField = "amount"

	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Query describes a filtered, paginated read over one wallet's ledger.
// From/To are inclusive and normalized to the start/end of their calendar day.
// Search matches case-insensitively against non-empty descriptions only.
type Query struct {
	WalletID string
	Skip     int
	Limit    int
	SortBy   SortField
	Order    SortOrder
	Search   string
	Type     Type
	From     *time.Time
	To       *time.Time
}

// Summary aggregates a wallet's ledger without materializing the rows.
type Summary struct {
	TotalCredits      int64
	TotalDebits       int64
	TotalTransactions int64
}

func normalizeBounds(from, to *time.Time) (*time.Time, *time.Time) {
	if from != nil {
		t := from.UTC()
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		from = &start
	}
	if to != nil {
		t := to.UTC()
		end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		to = &end
	}
	return from, to
}

func (q Query) withDefaults() Query {
	if q.SortBy == "" {
		q.SortBy = SortByDate
	}
	if q.Order == "" {
		q.Order = OrderDesc
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	q.From, q.To = normalizeBounds(q.From, q.To)
	return q
}
