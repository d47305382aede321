package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/granaflow/grana-api/internal/domain/common"
)

// DB is the subset of pgxpool.Pool the repositories use. pgxmock satisfies
// it too, so repository tests run against expectations instead of a live
// database.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var transactionColumns = []string{"id", "date", "month", "year", "kind", "description", "amount", "category"}

// InsertBatch bulk-loads an ingested batch via COPY.
func (r *PostgresRepository) InsertBatch(ctx context.Context, txs []common.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(txs))
	for _, tx := range txs {
		if tx.ID == uuid.Nil {
			tx.ID = uuid.New()
		}
		rows = append(rows, []any{
			tx.ID, tx.Date, tx.Month, tx.Year,
			string(tx.Kind), tx.Description, tx.Amount, string(tx.Category),
		})
	}
	n, err := r.db.CopyFrom(ctx, pgx.Identifier{"transactions"}, transactionColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to insert transaction batch: %w", err)
	}
	if n != int64(len(txs)) {
		return fmt.Errorf("partial batch insert: %d of %d rows", n, len(txs))
	}
	return nil
}

// List returns transactions matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]common.Transaction, error) {
	query := `
		SELECT id, date, month, year, kind, description, amount, category
		FROM transactions
		WHERE ($1 = '' OR kind = $1)
		  AND ($2 = '' OR category = $2)
		  AND ($3::timestamptz IS NULL OR date >= $3)
		  AND ($4::timestamptz IS NULL OR date < $4)
		  AND ($5 = '' OR description ILIKE '%' || $5 || '%')
		ORDER BY date DESC, created_at DESC
		LIMIT CASE WHEN $6 > 0 THEN $6 ELSE NULL END`

	var from, until any
	if !filter.From.IsZero() {
		from = filter.From
	}
	if !filter.Until.IsZero() {
		until = filter.Until
	}

	rows, err := r.db.Query(ctx, query,
		string(filter.Kind), string(filter.Category), from, until, filter.Search, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetByID retrieves one transaction.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*common.Transaction, error) {
	query := `
		SELECT id, date, month, year, kind, description, amount, category
		FROM transactions
		WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// UpdateCategory sets the budget bucket on one transaction. Used for both
// classification write-back and manual user corrections.
func (r *PostgresRepository) UpdateCategory(ctx context.Context, id uuid.UUID, category common.Category) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET category = $2, updated_at = now() WHERE id = $1`,
		id, string(category))
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes one transaction.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteAll wipes the transaction set. Only ever triggered by explicit user
// action before re-importing a corrected spreadsheet.
func (r *PostgresRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}
	return nil
}

// ListUncategorized returns expense rows still missing a budget bucket,
// oldest first so the nightly sweep drains the backlog in order.
func (r *PostgresRepository) ListUncategorized(ctx context.Context, limit int) ([]common.Transaction, error) {
	query := `
		SELECT id, date, month, year, kind, description, amount, category
		FROM transactions
		WHERE kind = $1 AND category = ''
		ORDER BY date ASC
		LIMIT CASE WHEN $2 > 0 THEN $2 ELSE NULL END`

	rows, err := r.db.Query(ctx, query, string(common.KindExpense), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uncategorized transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]common.Transaction, error) {
	var out []common.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*common.Transaction, error) {
	var tx common.Transaction
	var kind, category string
	if err := row.Scan(&tx.ID, &tx.Date, &tx.Month, &tx.Year, &kind, &tx.Description, &tx.Amount, &category); err != nil {
		return nil, err
	}
	tx.Kind = common.Kind(kind)
	tx.Category = common.Category(category)
	return &tx, nil
}
