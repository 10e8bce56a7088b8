package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/arpit-jain4999/wallet-ledger/internal/config"
	"github.com/arpit-jain4999/wallet-ledger/internal/export"
	"github.com/arpit-jain4999/wallet-ledger/internal/ledger"
	"github.com/arpit-jain4999/wallet-ledger/internal/middleware"
	"github.com/arpit-jain4999/wallet-ledger/internal/transaction"
	"github.com/arpit-jain4999/wallet-ledger/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. The returned stop
// function halts background work (retention sweep, serialization pool) and is
// called during graceful shutdown.
func Setup(app *fiber.App, d Deps) (func(), error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Stores
	var walletRepo wallet.Repository
	var txnRepo transaction.Repository
	if d.DB != nil {
		walletRepo = wallet.NewPostgresRepository(d.DB)
		txnRepo = transaction.NewPostgresRepository(d.DB)
	} else {
		walletRepo = wallet.NewMemoryRepository()
		txnRepo = transaction.NewMemoryRepository()
	}

	var jobRepo export.JobRepository
	if d.Cache != nil {
		jobRepo = export.NewRedisJobRepository(d.Cache, d.Cfg.ExportRetention)
	} else {
		jobRepo = export.NewMemoryJobRepository(d.Cfg.ExportRetention)
	}

	// Services
	walletSvc := wallet.NewService(walletRepo)
	ledgerSvc := ledger.NewService(walletRepo, txnRepo)

	pool := export.NewPool(d.Cfg.ExportWorkers, export.NewSerializer(d.Cfg.ExportBatchSize))
	coordinator := export.NewCoordinator(walletRepo, txnRepo, jobRepo, export.NewProgressBus(), pool, export.Config{
		SyncThreshold:    d.Cfg.ExportSyncThreshold,
		MaxRecords:       d.Cfg.ExportMaxRecords,
		BatchSize:        d.Cfg.ExportBatchSize,
		BatchDelay:       d.Cfg.ExportBatchDelay,
		SerializeTimeout: d.Cfg.ExportSerializeTimeout,
		Retention:        d.Cfg.ExportRetention,
		SweepInterval:    d.Cfg.ExportSweepInterval,
	}, d.Logger)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go coordinator.Sweep(sweepCtx)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterWalletRoutes(api, wallet.NewHandler(walletSvc))
	RegisterLedgerRoutes(api, ledger.NewHandler(ledgerSvc))
	RegisterExportRoutes(api, export.NewHandler(coordinator))

	stop := func() {
		stopSweep()
		pool.Close()
	}
	return stop, nil
}
