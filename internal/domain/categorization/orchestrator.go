package categorization

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/granaflow/grana-api/internal/domain/common"
	"github.com/granaflow/grana-api/pkg/metrics"
)

// Report summarizes one categorization batch for the caller's summary toast.
type Report struct {
	Candidates int `json:"candidates"`
	FromCache  int `json:"from_cache"`
	FromRules  int `json:"from_rules"`
	Classified int `json:"classified"`
	Failed     int `json:"failed"`
}

// Orchestrator fills in missing categories on expense transactions.
//
// Resolution order per candidate: cache, local rules engine, external
// classifier. Remote calls are strictly sequential and paced by a rate
// limiter so no two calls are ever in flight at once; the external API is
// rate limited.
// Classification failure is non-fatal: the row simply stays uncategorized.
type Orchestrator struct {
	store      Store
	engine     *Engine
	classifier Classifier
	policy     Policy
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewOrchestrator wires the categorization pipeline. requestDelay is the
// minimum spacing between successive remote calls (retries are spaced by the
// retry policy instead).
func NewOrchestrator(store Store, engine *Engine, classifier Classifier, policy Policy, requestDelay time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:      store,
		engine:     engine,
		classifier: classifier,
		policy:     policy,
		limiter:    rate.NewLimiter(rate.Every(requestDelay), 1),
		logger:     logger,
	}
}

// CategorizeAll assigns categories in place, in stable input order, and
// returns the batch report. A cache write from an earlier candidate is
// visible to later duplicates within the same run. Quota exhaustion aborts
// the remaining batch since every further call would fail identically.
func (o *Orchestrator) CategorizeAll(ctx context.Context, txs []common.Transaction) (Report, error) {
	var report Report

	for i := range txs {
		tx := &txs[i]
		if !tx.Kind.IsExpense() || tx.Categorized() || tx.Description == "" {
			continue
		}
		report.Candidates++

		key := common.NormalizeDescription(tx.Description)

		if cat, ok := o.store.Get(key); ok {
			tx.Category = cat
			report.FromCache++
			metrics.ClassificationResults.WithLabelValues("cache").Inc()
			continue
		}

		if o.engine != nil {
			if cat, ok := o.engine.Match(tx.Description); ok {
				tx.Category = cat
				report.FromRules++
				metrics.ClassificationResults.WithLabelValues("rules").Inc()
				o.writeBack(key, cat)
				continue
			}
		}

		if err := o.limiter.Wait(ctx); err != nil {
			return report, err
		}

		cat, err := o.policy.Do(ctx, func(ctx context.Context) (common.Category, error) {
			return o.classifier.Classify(ctx, tx.Description)
		})
		if err != nil {
			report.Failed++
			metrics.ClassificationResults.WithLabelValues("failed").Inc()
			o.logger.Warn("classification failed",
				slog.Int("row", i),
				slog.String("description", tx.Description),
				slog.Any("error", err),
			)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			var cerr *ClassificationError
			if errors.As(err, &cerr) && !cerr.Retryable {
				// Out of credits: the rest of the batch would fail the
				// same way. Leave the remaining rows uncategorized.
				return report, err
			}
			continue
		}

		tx.Category = cat
		report.Classified++
		metrics.ClassificationResults.WithLabelValues("remote").Inc()
		o.writeBack(key, cat)
	}

	o.logger.Info("categorization batch completed",
		slog.Int("candidates", report.Candidates),
		slog.Int("from_cache", report.FromCache),
		slog.Int("from_rules", report.FromRules),
		slog.Int("classified", report.Classified),
		slog.Int("failed", report.Failed),
	)

	return report, nil
}

// Remember records a manual user correction in the cache so future imports
// of the same description agree with the user.
func (o *Orchestrator) Remember(description string, cat common.Category) {
	o.writeBack(common.NormalizeDescription(description), cat)
}

// ClearCache wipes the persisted description→category mapping. Only ever
// triggered by explicit user action.
func (o *Orchestrator) ClearCache() error {
	return o.store.Clear()
}

func (o *Orchestrator) writeBack(key string, cat common.Category) {
	if err := o.store.Set(key, cat); err != nil {
		o.logger.Warn("category cache write failed",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}
