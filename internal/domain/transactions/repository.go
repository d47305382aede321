// Package transactions persists the canonical transaction set plus the
// debts and goals trackers.
package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/granaflow/grana-api/internal/domain/common"
)

// Filter narrows a transaction listing. Zero values mean "no constraint";
// the date range is half-open [From, Until).
type Filter struct {
	Kind     common.Kind
	Category common.Category
	From     time.Time
	Until    time.Time
	Search   string
	Limit    int
}

// Repository defines persistence for the canonical transaction set.
type Repository interface {
	InsertBatch(ctx context.Context, txs []common.Transaction) error
	List(ctx context.Context, filter Filter) ([]common.Transaction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*common.Transaction, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, category common.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) error
	ListUncategorized(ctx context.Context, limit int) ([]common.Transaction, error)
}

// DebtRepository defines persistence for tracked liabilities.
type DebtRepository interface {
	Create(ctx context.Context, debt *common.Debt) error
	List(ctx context.Context) ([]common.Debt, error)
	Update(ctx context.Context, debt *common.Debt) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// GoalRepository defines persistence for savings targets.
type GoalRepository interface {
	Create(ctx context.Context, goal *common.Goal) error
	List(ctx context.Context) ([]common.Goal, error)
	Update(ctx context.Context, goal *common.Goal) error
	Delete(ctx context.Context, id uuid.UUID) error
}
