// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/granaflow/grana-api/internal/domain/categorization"
	"github.com/granaflow/grana-api/internal/domain/transactions"

	robfig "github.com/robfig/cron/v3"
)

// sweepBatchSize caps how many backlog rows one nightly run touches, so a
// large uncategorized backlog never holds the classifier budget hostage.
const sweepBatchSize = 200

// Scheduler runs the nightly re-categorization sweep: expense rows that
// stayed uncategorized after upload (classifier down, credits out) get
// another pass while rates are quiet.
type Scheduler struct {
	cron         *robfig.Cron
	repo         transactions.Repository
	orchestrator *categorization.Orchestrator
	logger       *slog.Logger
}

// NewScheduler creates the job scheduler.
func NewScheduler(repo transactions.Repository, orchestrator *categorization.Orchestrator, logger *slog.Logger) *Scheduler {
	c := robfig.New(robfig.WithLogger(robfig.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	return &Scheduler{
		cron:         c,
		repo:         repo,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Start registers and begins the scheduled jobs.
func (s *Scheduler) Start() error {
	// Nightly at 3:00 AM, after the classifier's quota window resets.
	if _, err := s.cron.AddFunc("0 3 * * *", s.sweepUncategorized); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started", slog.Int("jobs", len(s.cron.Entries())))
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the sweep (admin/testing).
func (s *Scheduler) RunNow() {
	go s.sweepUncategorized()
}

func (s *Scheduler) sweepUncategorized() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	s.logger.Info("starting nightly categorization sweep")

	txs, err := s.repo.ListUncategorized(ctx, sweepBatchSize)
	if err != nil {
		s.logger.Error("failed to list uncategorized transactions", slog.Any("error", err))
		return
	}
	if len(txs) == 0 {
		s.logger.Info("no uncategorized backlog")
		return
	}

	report, err := s.orchestrator.CategorizeAll(ctx, txs)
	if err != nil {
		s.logger.Warn("sweep ended early", slog.Any("error", err))
	}

	updated := 0
	for _, tx := range txs {
		if !tx.Categorized() {
			continue
		}
		if err := s.repo.UpdateCategory(ctx, tx.ID, tx.Category); err != nil {
			s.logger.Warn("failed to persist swept category",
				slog.String("id", tx.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		updated++
	}

	s.logger.Info("nightly categorization sweep completed",
		slog.Int("candidates", report.Candidates),
		slog.Int("classified", report.Classified),
		slog.Int("from_cache", report.FromCache),
		slog.Int("from_rules", report.FromRules),
		slog.Int("failed", report.Failed),
		slog.Int("persisted", updated),
	)
}
