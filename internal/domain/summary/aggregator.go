package summary

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/granaflow/grana-api/internal/domain/common"
	"github.com/granaflow/grana-api/pkg/money"
)

// Summary holds the derived metrics for one period selection.
type Summary struct {
	Period           Period                              `json:"period"`
	TransactionCount int                                 `json:"transaction_count"`
	TotalIncome      decimal.Decimal                     `json:"total_income"`
	TotalExpense     decimal.Decimal                     `json:"total_expense"`
	Balance          decimal.Decimal                     `json:"balance"`
	ByCategory       map[common.Category]decimal.Decimal `json:"by_category"`
	CategoryShare    map[common.Category]decimal.Decimal `json:"category_share"`
	Recommended      map[common.Category]decimal.Decimal `json:"recommended"`
	IncomeChange     decimal.Decimal                     `json:"income_change_pct"`
	ExpenseChange    decimal.Decimal                     `json:"expense_change_pct"`
}

// fiftyThirtyTwenty are the budget-rule target shares of total income.
var fiftyThirtyTwenty = map[common.Category]decimal.Decimal{
	common.CategoryEssential: decimal.NewFromFloat(0.5),
	common.CategoryWant:      decimal.NewFromFloat(0.3),
	common.CategorySaving:    decimal.NewFromFloat(0.2),
}

// Aggregate filters the transaction set by period and derives the summary
// metrics. Income covers both Receita and Renda Extra; the 50/30/20
// breakdown covers categorized expenses only. Deltas compare against the
// immediately preceding window via the same aggregation; a zero baseline
// reports +100% when the current value is positive.
func Aggregate(txs []common.Transaction, p Period, now time.Time) Summary {
	current := p.currentWindow(now)
	previous := p.previousWindow(now)

	s := Summary{
		Period:        p,
		ByCategory:    make(map[common.Category]decimal.Decimal),
		CategoryShare: make(map[common.Category]decimal.Decimal),
		Recommended:   make(map[common.Category]decimal.Decimal),
	}

	var prevIncome, prevExpense decimal.Decimal

	for _, tx := range txs {
		if current.contains(tx.Date) {
			s.TransactionCount++
			switch {
			case tx.Kind.IsIncome():
				s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			case tx.Kind.IsExpense():
				s.TotalExpense = s.TotalExpense.Add(tx.Amount)
				if tx.Category != "" {
					s.ByCategory[tx.Category] = s.ByCategory[tx.Category].Add(tx.Amount)
				}
			}
			continue
		}
		if previous.contains(tx.Date) {
			switch {
			case tx.Kind.IsIncome():
				prevIncome = prevIncome.Add(tx.Amount)
			case tx.Kind.IsExpense():
				prevExpense = prevExpense.Add(tx.Amount)
			}
		}
	}

	s.Balance = s.TotalIncome.Sub(s.TotalExpense)

	for cat, total := range s.ByCategory {
		s.CategoryShare[cat] = money.Share(total, s.TotalExpense)
	}
	for cat, share := range fiftyThirtyTwenty {
		s.Recommended[cat] = s.TotalIncome.Mul(share).Round(2)
	}

	s.IncomeChange = money.PercentChange(s.TotalIncome, prevIncome)
	s.ExpenseChange = money.PercentChange(s.TotalExpense, prevExpense)

	return s
}
