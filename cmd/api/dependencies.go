package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/granaflow/grana-api/internal/api"
	"github.com/granaflow/grana-api/internal/database"
	"github.com/granaflow/grana-api/internal/domain/categorization"
	"github.com/granaflow/grana-api/internal/domain/ingest"
	"github.com/granaflow/grana-api/internal/domain/insights"
	"github.com/granaflow/grana-api/internal/domain/search"
	"github.com/granaflow/grana-api/internal/domain/transactions"
	"github.com/granaflow/grana-api/pkg/config"
	"github.com/granaflow/grana-api/pkg/cron"
)

// Dependencies holds all application dependencies.
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	TransactionRepo transactions.Repository
	DebtRepo        transactions.DebtRepository
	GoalRepo        transactions.GoalRepository

	IngestService   *ingest.Service
	Orchestrator    *categorization.Orchestrator
	InsightsService *insights.Service
	SearchIndex     *search.Index
	Scheduler       *cron.Scheduler

	Handler *api.Handler
}

// InitDependencies wires the full application graph.
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Logger: logger}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.Handler = api.NewHandler(
		deps.IngestService,
		deps.TransactionRepo,
		deps.DebtRepo,
		deps.GoalRepo,
		deps.Orchestrator,
		deps.InsightsService,
		deps.SearchIndex,
		deps.Scheduler,
		logger,
	)

	logger.Info("all dependencies initialized")
	return deps, nil
}

func (d *Dependencies) initDatabase(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(d.Config.Database.DSN())
	if err != nil {
		return err
	}
	poolCfg.MaxConns = 25
	poolCfg.MinConns = 5
	poolCfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("database unreachable: %w", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return err
	}

	d.Pool = pool
	d.TransactionRepo = transactions.NewPostgresRepository(pool)
	d.DebtRepo = transactions.NewPostgresDebtRepository(pool)
	d.GoalRepo = transactions.NewPostgresGoalRepository(pool)
	return nil
}

func (d *Dependencies) initServices() error {
	cfg := d.Config

	d.IngestService = ingest.NewService(
		ingest.DefaultStrategies(cfg.Ingest.HeaderScanStart, cfg.Ingest.HeaderScanEnd),
		d.Logger,
	)

	store, err := categorization.OpenFileStore(cfg.Ingest.CachePath)
	if err != nil {
		return fmt.Errorf("failed to open category cache: %w", err)
	}

	policy := categorization.DefaultPolicy()
	policy.MaxAttempts = cfg.Classifier.MaxAttempts
	policy.BaseBackoff = cfg.Classifier.BaseBackoff
	policy.MaxBackoff = cfg.Classifier.MaxBackoff

	d.Orchestrator = categorization.NewOrchestrator(
		store,
		categorization.NewEngine(categorization.DefaultRules),
		categorization.NewHTTPClassifier(cfg.Classifier.Endpoint, cfg.Classifier.APIKey),
		policy,
		cfg.Classifier.RequestDelay,
		d.Logger,
	)

	d.InsightsService = insights.NewService(
		insights.NewClient(cfg.Insights.Endpoint, cfg.Insights.PredictionEndpoint, cfg.Insights.APIKey),
		d.Logger,
	)

	index, err := search.NewIndex(cfg.Ingest.SearchIndexPath)
	if err != nil {
		return fmt.Errorf("failed to open search index: %w", err)
	}
	d.SearchIndex = index

	d.Scheduler = cron.NewScheduler(d.TransactionRepo, d.Orchestrator, d.Logger)
	return nil
}

// Close releases held resources in reverse dependency order.
func (d *Dependencies) Close() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.SearchIndex != nil {
		if err := d.SearchIndex.Close(); err != nil {
			d.Logger.Warn("failed to close search index", slog.Any("error", err))
		}
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}
