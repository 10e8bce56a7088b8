// Package export turns a wallet's transaction history into a CSV artifact.
// Small histories are rendered inline; larger ones run as background jobs
// with batched retrieval, offloaded serialization and live progress delivery.
package export

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arpit-jain4999/wallet-ledger/internal/money"
	"github.com/arpit-jain4999/wallet-ledger/internal/transaction"
	"github.com/arpit-jain4999/wallet-ledger/internal/wallet"
)

// ErrTooManyRecords occurs when a wallet's history exceeds the hard export cap.
var ErrTooManyRecords = errors.New("export exceeds record cap")

// Batch retrieval advances progress through 0-90; serialization blends into
// the final 10 points so total progress is monotonic from 0 to 100.
const retrievalShare = 90

// Config tunes the coordinator. Zero values fall back to defaults.
type Config struct {
	// SyncThreshold is the largest history rendered inline, without a job.
	SyncThreshold int64
	// MaxRecords is the hard cap above which exports are refused.
	MaxRecords int64
	// BatchSize is how many rows each retrieval batch fetches.
	BatchSize int
	// BatchDelay is the yield between batches so the loop never monopolizes
	// shared execution resources.
	BatchDelay time.Duration
	// SerializeTimeout bounds the wait on the serialization pool; exceeding
	// it fails the job rather than leaving it PROCESSING.
	SerializeTimeout time.Duration
	// Retention is how long a job outlives its creation, regardless of outcome.
	Retention time.Duration
	// SweepInterval is how often the retention sweep runs.
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.SyncThreshold <= 0 {
		c.SyncThreshold = 500
	}
	if c.MaxRecords <= 0 {
		c.MaxRecords = 50_000
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.SerializeTimeout <= 0 {
		c.SerializeTimeout = 2 * time.Minute
	}
	if c.Retention <= 0 {
		c.Retention = 24 * time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 10 * time.Minute
	}
	return c
}

// Coordinator decides sync-vs-async, drives batched retrieval and
// serialization, and owns the export job lifecycle.
type Coordinator struct {
	wallets wallet.Repository
	txns    transaction.Repository
	jobs    JobRepository
	bus     *ProgressBus
	pool    *Pool
	cfg     Config
	logger  *slog.Logger
}

// NewCoordinator wires an export coordinator.
func NewCoordinator(wallets wallet.Repository, txns transaction.Repository, jobs JobRepository, bus *ProgressBus, pool *Pool, cfg Config, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		wallets: wallets,
		txns:    txns,
		jobs:    jobs,
		bus:     bus,
		pool:    pool,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

// Result is the outcome of an export request: CSV text for the synchronous
// path, or a job handle (Job non-nil) when processing continues in the
// background.
type Result struct {
	CSV string
	Job *Job
}

// Export confirms the wallet exists, sizes its history and either renders the
// CSV inline, hands back a job that keeps processing after this call returns,
// or refuses histories above the hard cap.
func (c *Coordinator) Export(ctx context.Context, walletID string) (Result, error) {
	if _, err := c.wallets.Get(ctx, walletID); err != nil {
		return Result{}, err
	}
	summary, err := c.txns.Summary(ctx, walletID)
	if err != nil {
		return Result{}, err
	}
	count := summary.TotalTransactions

	if count > c.cfg.MaxRecords {
		return Result{}, fmt.Errorf("%w: %d records, cap is %d", ErrTooManyRecords, count, c.cfg.MaxRecords)
	}

	if count <= c.cfg.SyncThreshold {
		rows, err := c.txns.FindAll(ctx, walletID)
		if err != nil {
			return Result{}, err
		}
		sctx, cancel := context.WithTimeout(ctx, c.cfg.SerializeTimeout)
		defer cancel()
		csv, err := c.pool.Serialize(sctx, toRecords(rows), nil)
		if err != nil {
			return Result{}, err
		}
		return Result{CSV: csv}, nil
	}

	job := Job{
		ID:           uuid.NewString(),
		WalletID:     walletID,
		Status:       StatusPending,
		TotalRecords: count,
		CreatedAt:    time.Now().UTC(),
	}
	if err := c.jobs.Put(ctx, job); err != nil {
		return Result{}, err
	}

	// Detached from the request: the loop runs to a terminal state whether or
	// not anyone keeps watching.
	go c.run(job)

	return Result{Job: &job}, nil
}

// JobStatus fetches the current job snapshot.
func (c *Coordinator) JobStatus(ctx context.Context, jobID string) (Job, error) {
	return c.jobs.Get(ctx, jobID)
}

// SubscribeProgress returns a stream of snapshots for the job, closed after a
// terminal snapshot. A job already terminal yields a single-snapshot closed
// stream. Dropping the stream does not stop the job.
func (c *Coordinator) SubscribeProgress(ctx context.Context, jobID string) (<-chan Job, func(), error) {
	// Subscribe before the existence check so a terminal snapshot published
	// between the two cannot be missed.
	ch, cancel := c.bus.Subscribe(jobID)

	job, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if job.Status.Terminal() {
		cancel()
		done := make(chan Job, 1)
		done <- job
		close(done)
		return done, func() {}, nil
	}
	return ch, cancel, nil
}

// Sweep periodically purges jobs older than the retention window. It is a
// backstop to the store-level TTL and returns when ctx is done.
func (c *Coordinator) Sweep(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := c.jobs.PurgeExpired(ctx, time.Now().UTC().Add(-c.cfg.Retention))
			if err != nil {
				c.logger.Warn("export job sweep failed", "error", err)
				continue
			}
			if purged > 0 {
				c.logger.Info("export jobs purged", "count", purged)
			}
		}
	}
}

func (c *Coordinator) run(job Job) {
	// Deliberately not the request context: the caller already got its handle.
	ctx := context.Background()

	job.Status = StatusProcessing
	job.Progress = 0
	c.update(ctx, job)

	// Pages walk oldest-first: rows appended while the export runs land past
	// the cursor instead of shifting it, so no boundary row repeats.
	records := make([]Record, 0, job.TotalRecords)
	for skip := 0; int64(skip) < job.TotalRecords; {
		items, _, err := c.txns.Query(ctx, transaction.Query{
			WalletID: job.WalletID,
			Skip:     skip,
			Limit:    c.cfg.BatchSize,
			SortBy:   transaction.SortByDate,
			Order:    transaction.OrderAsc,
		})
		if err != nil {
			c.fail(ctx, job, fmt.Sprintf("fetch batch at offset %d: %v", skip, err))
			return
		}
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			records = append(records, recordFor(item))
		}
		skip += len(items)

		job.ProcessedRecords = int64(skip)
		pct := int(job.ProcessedRecords * retrievalShare / job.TotalRecords)
		if pct > retrievalShare {
			pct = retrievalShare
		}
		if pct > job.Progress {
			job.Progress = pct
		}
		c.update(ctx, job)

		time.Sleep(c.cfg.BatchDelay)
	}

	// The artifact stays newest-first, matching the synchronous path.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	sctx, cancel := context.WithTimeout(ctx, c.cfg.SerializeTimeout)
	defer cancel()

	// The callback runs on a pool worker. It publishes display-only snapshots
	// and never writes the store, so a late tick after a timeout cannot
	// resurrect a job that fail() already finalized.
	snap := job
	csv, err := c.pool.Serialize(sctx, records, func(pct int) {
		p := retrievalShare + pct*(100-retrievalShare)/100
		if p > 99 {
			p = 99
		}
		if p > snap.Progress {
			snap.Progress = p
			c.bus.Publish(snap)
		}
	})
	if err != nil {
		c.fail(ctx, job, fmt.Sprintf("serialize %d records: %v", len(records), err))
		return
	}

	now := time.Now().UTC()
	job.Status = StatusCompleted
	job.Progress = 100
	job.Download = base64.StdEncoding.EncodeToString([]byte(csv))
	job.CompletedAt = &now
	c.update(ctx, job)

	c.logger.Info("export completed",
		"job_id", job.ID, "wallet_id", job.WalletID, "records", job.ProcessedRecords)
}

// fail finalizes the job with a human-readable error. Background failures end
// here; they never escape and terminate the process.
func (c *Coordinator) fail(ctx context.Context, job Job, msg string) {
	now := time.Now().UTC()
	job.Status = StatusFailed
	job.Error = msg
	job.CompletedAt = &now
	c.update(ctx, job)
	c.logger.Error("export failed", "job_id", job.ID, "wallet_id", job.WalletID, "error", msg)
}

func (c *Coordinator) update(ctx context.Context, job Job) {
	if err := c.jobs.Put(ctx, job); err != nil {
		c.logger.Warn("persist job snapshot", "job_id", job.ID, "error", err)
	}
	c.bus.Publish(job)
}

func toRecords(items []transaction.Transaction) []Record {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		records = append(records, recordFor(item))
	}
	return records
}

func recordFor(t transaction.Transaction) Record {
	return Record{
		{Key: "id", Value: t.ID},
		{Key: "walletId", Value: t.WalletID},
		{Key: "type", Value: string(t.Type)},
		{Key: "amount", Value: money.Format(t.Amount)},
		{Key: "balanceAfter", Value: money.Format(t.BalanceAfter)},
		{Key: "description", Value: t.Description},
		{Key: "createdAt", Value: t.CreatedAt.Format(time.RFC3339Nano)},
	}
}
