// Package api exposes the HTTP surface: spreadsheet upload, transaction
// listing, period summaries, insights, exports, search, and the debt and
// goal trackers.
package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/granaflow/grana-api/internal/domain/categorization"
	"github.com/granaflow/grana-api/internal/domain/common"
	"github.com/granaflow/grana-api/internal/domain/ingest"
	"github.com/granaflow/grana-api/internal/domain/insights"
	"github.com/granaflow/grana-api/internal/domain/search"
	"github.com/granaflow/grana-api/internal/domain/summary"
	"github.com/granaflow/grana-api/internal/domain/transactions"
)

// maxUploadBytes caps spreadsheet uploads at 10 MiB.
const maxUploadBytes = 10 << 20

// Sweeper triggers the background categorization sweep outside its schedule.
type Sweeper interface {
	RunNow()
}

// Handler carries the wired services behind the HTTP surface.
type Handler struct {
	ingest       *ingest.Service
	repo         transactions.Repository
	debts        transactions.DebtRepository
	goals        transactions.GoalRepository
	orchestrator *categorization.Orchestrator
	insights     *insights.Service
	search       *search.Index
	sweeper      Sweeper
	logger       *slog.Logger
}

func NewHandler(
	ingestSvc *ingest.Service,
	repo transactions.Repository,
	debts transactions.DebtRepository,
	goals transactions.GoalRepository,
	orchestrator *categorization.Orchestrator,
	insightsSvc *insights.Service,
	searchIdx *search.Index,
	sweeper Sweeper,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		ingest:       ingestSvc,
		repo:         repo,
		debts:        debts,
		goals:        goals,
		orchestrator: orchestrator,
		insights:     insightsSvc,
		search:       searchIdx,
		sweeper:      sweeper,
		logger:       logger,
	}
}

// Upload handles POST /api/upload: decode the spreadsheet, categorize the
// batch, persist it, and index it for search. Classification failures do not
// fail the upload; the affected rows simply stay uncategorized.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := h.ingest.Ingest(ctx, header.Filename, header.Header.Get("Content-Type"), data)
	switch {
	case errors.Is(err, ingest.ErrInvalidFileType):
		WriteError(w, http.StatusUnsupportedMediaType, "only .xlsx and .xls files are accepted")
		return
	case errors.Is(err, ingest.ErrHeaderNotFound):
		WriteError(w, http.StatusUnprocessableEntity, "no recognizable header row in spreadsheet")
		return
	case err != nil:
		h.logger.Error("upload failed", slog.Any("error", err))
		WriteError(w, http.StatusUnprocessableEntity, "failed to read spreadsheet")
		return
	}

	report, catErr := h.orchestrator.CategorizeAll(ctx, result.Transactions)
	if catErr != nil {
		h.logger.Warn("categorization incomplete", slog.Any("error", catErr))
	}

	if err := h.repo.InsertBatch(ctx, result.Transactions); err != nil {
		h.logger.Error("failed to persist batch", slog.Any("error", err))
		WriteError(w, http.StatusInternalServerError, "failed to persist transactions")
		return
	}
	if err := h.search.IndexBatch(result.Transactions); err != nil {
		h.logger.Warn("failed to index batch", slog.Any("error", err))
	}

	resp := map[string]any{
		"transactions":   result.Transactions,
		"header_row":     result.HeaderRow,
		"rows_total":     result.RowsTotal,
		"rows_accepted":  result.RowsAccepted,
		"rows_dropped":   result.RowsDropped,
		"categorization": report,
	}
	if errors.Is(catErr, categorization.ErrQuotaExceeded) {
		resp["warning"] = "classification credits exhausted; some rows left uncategorized"
	}
	WriteJSON(w, http.StatusOK, resp)
}

// ListTransactions handles GET /api/transactions with optional kind,
// category, period, q and limit query parameters.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter := transactions.Filter{
		Kind:     common.Kind(r.URL.Query().Get("kind")),
		Category: common.Category(r.URL.Query().Get("category")),
		Search:   r.URL.Query().Get("q"),
	}
	if p := r.URL.Query().Get("period"); p != "" {
		filter.From, filter.Until = periodBounds(summary.ParsePeriod(p))
	}

	txs, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list transactions", slog.Any("error", err))
		WriteError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

// UpdateCategory handles PATCH /api/transactions/{id}/category for manual
// corrections. The correction is written back to the category cache so future
// imports of the same description agree with the user.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req struct {
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.ValidCategory(req.Category) {
		WriteError(w, http.StatusBadRequest, "category must be Essencial, Desejo or Poupança")
		return
	}
	category := common.CoerceCategory(req.Category)

	tx, err := h.repo.GetByID(r.Context(), id)
	if transactions.ErrNotFound(err) {
		WriteError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load transaction")
		return
	}

	if err := h.repo.UpdateCategory(r.Context(), id, category); err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to update category")
		return
	}
	h.orchestrator.Remember(tx.Description, category)

	tx.Category = category
	if err := h.search.IndexBatch([]common.Transaction{*tx}); err != nil {
		h.logger.Warn("failed to reindex transaction", slog.Any("error", err))
	}
	WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	err = h.repo.Delete(r.Context(), id)
	if transactions.ErrNotFound(err) {
		WriteError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}
	if err := h.search.Delete(id); err != nil {
		h.logger.Warn("failed to deindex transaction", slog.Any("error", err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearTransactions handles DELETE /api/transactions.
func (h *Handler) ClearTransactions(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteAll(r.Context()); err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to clear transactions")
		return
	}
	if err := h.search.Clear(); err != nil {
		h.logger.Warn("failed to clear search index", slog.Any("error", err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary handles GET /api/summary?period=week|month|year|all.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	period := summary.ParsePeriod(r.URL.Query().Get("period"))

	txs, err := h.repo.List(r.Context(), transactions.Filter{})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	WriteJSON(w, http.StatusOK, summary.Aggregate(txs, period, time.Now().UTC()))
}

// Pulse handles GET /api/insights/pulse, the locally computed pace check.
func (h *Handler) Pulse(w http.ResponseWriter, r *http.Request) {
	txs, err := h.repo.List(r.Context(), transactions.Filter{})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	WriteJSON(w, http.StatusOK, h.insights.ComputePulse(txs, time.Now().UTC()))
}

// GenerateInsights handles POST /api/insights.
func (h *Handler) GenerateInsights(w http.ResponseWriter, r *http.Request) {
	salary, ok := h.readSalary(w, r)
	if !ok {
		return
	}
	txs, err := h.repo.List(r.Context(), transactions.Filter{})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	cards, err := h.insights.GenerateInsights(r.Context(), txs, salary)
	if err != nil {
		WriteError(w, http.StatusBadGateway, "insight generation failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"insights": cards})
}

// Predict handles POST /api/insights/prediction.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	salary, ok := h.readSalary(w, r)
	if !ok {
		return
	}
	txs, err := h.repo.List(r.Context(), transactions.Filter{})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	pred, err := h.insights.PredictSpending(r.Context(), txs, salary)
	if err != nil {
		WriteError(w, http.StatusBadGateway, "spending prediction failed")
		return
	}
	WriteJSON(w, http.StatusOK, pred)
}

func (h *Handler) readSalary(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req struct {
		Salary decimal.Decimal `json:"salary"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return decimal.Zero, false
		}
	}
	return req.Salary, true
}

// Export handles GET /api/export?format=xlsx|csv.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	txs, err := h.repo.List(r.Context(), transactions.Filter{})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	stamp := time.Now().Format("2006-01-02")
	switch r.URL.Query().Get("format") {
	case "csv":
		data, err := ingest.ExportCSV(txs)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to build export")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="transacoes-%s.csv"`, stamp))
		_, _ = w.Write(data)
	default:
		data, err := ingest.ExportXLSX(txs)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to build export")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="transacoes-%s.xlsx"`, stamp))
		_, _ = w.Write(data)
	}
}

// Search handles GET /api/search?q=...&limit=n. With prefix=true the query
// runs as a prefix match instead of the fuzzy default, which is what the
// frontend's autocomplete uses while the user is still typing.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		WriteError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	var results []search.Result
	var err error
	if r.URL.Query().Get("prefix") == "true" {
		results, err = h.search.SearchPrefix(q, queryInt(r, "limit"))
	} else {
		results, err = h.search.Search(q, queryInt(r, "limit"))
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "search failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// SweepNow handles POST /api/categorization/sweep: kick off the backlog
// sweep immediately instead of waiting for the nightly schedule. The sweep
// runs in the background; the response only acknowledges the trigger.
func (h *Handler) SweepNow(w http.ResponseWriter, _ *http.Request) {
	h.sweeper.RunNow()
	w.WriteHeader(http.StatusAccepted)
}

// ClearCache handles DELETE /api/categorization/cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.ClearCache(); err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to clear category cache")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
