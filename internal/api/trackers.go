package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/granaflow/grana-api/internal/domain/common"
	"github.com/granaflow/grana-api/internal/domain/transactions"
)

type debtRequest struct {
	Name    string          `json:"name"`
	Total   decimal.Decimal `json:"total"`
	Paid    decimal.Decimal `json:"paid"`
	DueDate *time.Time      `json:"due_date,omitempty"`
}

// CreateDebt handles POST /api/debts.
func (h *Handler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || !req.Total.IsPositive() {
		WriteError(w, http.StatusBadRequest, "name and a positive total are required")
		return
	}

	debt := &common.Debt{Name: req.Name, Total: req.Total, Paid: req.Paid, DueDate: req.DueDate}
	if err := h.debts.Create(r.Context(), debt); err != nil {
		h.logger.Error("failed to create debt", slog.Any("error", err))
		WriteError(w, http.StatusInternalServerError, "failed to create debt")
		return
	}
	WriteJSON(w, http.StatusCreated, debt)
}

// ListDebts handles GET /api/debts.
func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := h.debts.List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list debts")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"debts": debts, "count": len(debts)})
}

// UpdateDebt handles PUT /api/debts/{id}.
func (h *Handler) UpdateDebt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid debt id")
		return
	}
	var req debtRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	debt := &common.Debt{ID: id, Name: req.Name, Total: req.Total, Paid: req.Paid, DueDate: req.DueDate}
	err = h.debts.Update(r.Context(), debt)
	if transactions.ErrNotFound(err) {
		WriteError(w, http.StatusNotFound, "debt not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to update debt")
		return
	}
	WriteJSON(w, http.StatusOK, debt)
}

// DeleteDebt handles DELETE /api/debts/{id}.
func (h *Handler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid debt id")
		return
	}
	err = h.debts.Delete(r.Context(), id)
	if transactions.ErrNotFound(err) {
		WriteError(w, http.StatusNotFound, "debt not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to delete debt")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type goalRequest struct {
	Name     string          `json:"name"`
	Target   decimal.Decimal `json:"target"`
	Saved    decimal.Decimal `json:"saved"`
	Deadline *time.Time      `json:"deadline,omitempty"`
}

// CreateGoal handles POST /api/goals.
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || !req.Target.IsPositive() {
		WriteError(w, http.StatusBadRequest, "name and a positive target are required")
		return
	}

	goal := &common.Goal{Name: req.Name, Target: req.Target, Saved: req.Saved, Deadline: req.Deadline}
	if err := h.goals.Create(r.Context(), goal); err != nil {
		h.logger.Error("failed to create goal", slog.Any("error", err))
		WriteError(w, http.StatusInternalServerError, "failed to create goal")
		return
	}
	WriteJSON(w, http.StatusCreated, goal)
}

// ListGoals handles GET /api/goals.
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goals.List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list goals")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"goals": goals, "count": len(goals)})
}

// UpdateGoal handles PUT /api/goals/{id}.
func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid goal id")
		return
	}
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	goal := &common.Goal{ID: id, Name: req.Name, Target: req.Target, Saved: req.Saved, Deadline: req.Deadline}
	err = h.goals.Update(r.Context(), goal)
	if transactions.ErrNotFound(err) {
		WriteError(w, http.StatusNotFound, "goal not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to update goal")
		return
	}
	WriteJSON(w, http.StatusOK, goal)
}

// DeleteGoal handles DELETE /api/goals/{id}.
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid goal id")
		return
	}
	err = h.goals.Delete(r.Context(), id)
	if transactions.ErrNotFound(err) {
		WriteError(w, http.StatusNotFound, "goal not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to delete goal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
