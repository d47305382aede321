package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/granaflow/grana-api/internal/domain/common"
)

// PostgresDebtRepository implements DebtRepository using PostgreSQL.
type PostgresDebtRepository struct {
	db DB
}

func NewPostgresDebtRepository(db DB) *PostgresDebtRepository {
	return &PostgresDebtRepository{db: db}
}

func (r *PostgresDebtRepository) Create(ctx context.Context, debt *common.Debt) error {
	if debt.ID == uuid.Nil {
		debt.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO debts (id, name, total, paid, due_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		debt.ID, debt.Name, debt.Total, debt.Paid, debt.DueDate,
	).Scan(&debt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create debt: %w", err)
	}
	return nil
}

func (r *PostgresDebtRepository) List(ctx context.Context) ([]common.Debt, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, total, paid, due_date, created_at
		FROM debts
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var out []common.Debt
	for rows.Next() {
		var d common.Debt
		if err := rows.Scan(&d.ID, &d.Name, &d.Total, &d.Paid, &d.DueDate, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresDebtRepository) Update(ctx context.Context, debt *common.Debt) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE debts SET name = $2, total = $3, paid = $4, due_date = $5
		WHERE id = $1`,
		debt.ID, debt.Name, debt.Total, debt.Paid, debt.DueDate)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresDebtRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM debts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete debt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PostgresGoalRepository implements GoalRepository using PostgreSQL.
type PostgresGoalRepository struct {
	db DB
}

func NewPostgresGoalRepository(db DB) *PostgresGoalRepository {
	return &PostgresGoalRepository{db: db}
}

func (r *PostgresGoalRepository) Create(ctx context.Context, goal *common.Goal) error {
	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO goals (id, name, target, saved, deadline)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		goal.ID, goal.Name, goal.Target, goal.Saved, goal.Deadline,
	).Scan(&goal.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

func (r *PostgresGoalRepository) List(ctx context.Context) ([]common.Goal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, target, saved, deadline, created_at
		FROM goals
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var out []common.Goal
	for rows.Next() {
		var g common.Goal
		if err := rows.Scan(&g.ID, &g.Name, &g.Target, &g.Saved, &g.Deadline, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *PostgresGoalRepository) Update(ctx context.Context, goal *common.Goal) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE goals SET name = $2, target = $3, saved = $4, deadline = $5
		WHERE id = $1`,
		goal.ID, goal.Name, goal.Target, goal.Saved, goal.Deadline)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresGoalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM goals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ErrNotFound reports whether err is the canonical missing-row error.
func ErrNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}
