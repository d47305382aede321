package summary

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granaflow/grana-api/internal/domain/common"
)

var now = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func tx(date time.Time, kind common.Kind, amount string, cat common.Category) common.Transaction {
	return common.Transaction{
		Date:     date,
		Kind:     kind,
		Amount:   decimal.RequireFromString(amount),
		Category: cat,
	}
}

func TestParsePeriod(t *testing.T) {
	assert.Equal(t, PeriodWeek, ParsePeriod("week"))
	assert.Equal(t, PeriodMonth, ParsePeriod("month"))
	assert.Equal(t, PeriodYear, ParsePeriod("year"))
	assert.Equal(t, PeriodAll, ParsePeriod("all"))
	assert.Equal(t, PeriodAll, ParsePeriod(""))
	assert.Equal(t, PeriodAll, ParsePeriod("quinzena"))
}

func TestAggregate_MonthTotals(t *testing.T) {
	txs := []common.Transaction{
		tx(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), common.KindIncome, "5000", ""),
		tx(time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), common.KindExtraIncome, "800", ""),
		tx(time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC), common.KindExpense, "1800", common.CategoryEssential),
		tx(time.Date(2024, time.June, 8, 0, 0, 0, 0, time.UTC), common.KindExpense, "400", common.CategoryWant),
		tx(time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC), common.KindExpense, "300", common.CategorySaving),
		// Outside the window.
		tx(time.Date(2024, time.April, 9, 0, 0, 0, 0, time.UTC), common.KindExpense, "999", common.CategoryWant),
	}

	s := Aggregate(txs, PeriodMonth, now)

	assert.Equal(t, 5, s.TransactionCount)
	assert.True(t, decimal.RequireFromString("5800").Equal(s.TotalIncome), "income %s", s.TotalIncome)
	assert.True(t, decimal.RequireFromString("2500").Equal(s.TotalExpense), "expense %s", s.TotalExpense)
	assert.True(t, decimal.RequireFromString("3300").Equal(s.Balance), "balance %s", s.Balance)

	assert.True(t, decimal.RequireFromString("1800").Equal(s.ByCategory[common.CategoryEssential]))
	assert.True(t, decimal.RequireFromString("400").Equal(s.ByCategory[common.CategoryWant]))
	assert.True(t, decimal.RequireFromString("300").Equal(s.ByCategory[common.CategorySaving]))

	assert.True(t, decimal.RequireFromString("72").Equal(s.CategoryShare[common.CategoryEssential]))
	assert.True(t, decimal.RequireFromString("16").Equal(s.CategoryShare[common.CategoryWant]))
	assert.True(t, decimal.RequireFromString("12").Equal(s.CategoryShare[common.CategorySaving]))
}

func TestAggregate_FiftyThirtyTwentyTargets(t *testing.T) {
	txs := []common.Transaction{
		tx(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), common.KindIncome, "6000", ""),
	}

	s := Aggregate(txs, PeriodMonth, now)

	assert.True(t, decimal.RequireFromString("3000").Equal(s.Recommended[common.CategoryEssential]))
	assert.True(t, decimal.RequireFromString("1800").Equal(s.Recommended[common.CategoryWant]))
	assert.True(t, decimal.RequireFromString("1200").Equal(s.Recommended[common.CategorySaving]))
}

func TestAggregate_MonthOverMonthDelta(t *testing.T) {
	txs := []common.Transaction{
		tx(time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC), common.KindExpense, "1000", common.CategoryWant),
		tx(time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC), common.KindExpense, "1500", common.CategoryWant),
	}

	s := Aggregate(txs, PeriodMonth, now)
	assert.True(t, decimal.RequireFromString("50").Equal(s.ExpenseChange), "delta %s", s.ExpenseChange)
}

func TestAggregate_ZeroBaselineDelta(t *testing.T) {
	// No previous-month data: a positive current total reads as +100%.
	txs := []common.Transaction{
		tx(time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC), common.KindExpense, "1500", common.CategoryWant),
	}

	s := Aggregate(txs, PeriodMonth, now)
	assert.True(t, decimal.RequireFromString("100").Equal(s.ExpenseChange))
	assert.True(t, s.IncomeChange.IsZero())
}

func TestAggregate_UncategorizedExpenseExcludedFromBreakdown(t *testing.T) {
	txs := []common.Transaction{
		tx(time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC), common.KindExpense, "200", ""),
		tx(time.Date(2024, time.June, 6, 0, 0, 0, 0, time.UTC), common.KindExpense, "100", common.CategoryWant),
	}

	s := Aggregate(txs, PeriodMonth, now)
	assert.True(t, decimal.RequireFromString("300").Equal(s.TotalExpense))
	require.Len(t, s.ByCategory, 1)
	// The share denominator is total expenses, not just categorized ones.
	assert.True(t, decimal.RequireFromString("33.33").Equal(s.CategoryShare[common.CategoryWant]))
}

func TestAggregate_AllPeriodHasNoBaseline(t *testing.T) {
	txs := []common.Transaction{
		tx(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), common.KindExpense, "50", common.CategoryWant),
		tx(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), common.KindExpense, "70", common.CategoryWant),
	}

	s := Aggregate(txs, PeriodAll, now)
	assert.Equal(t, 2, s.TransactionCount)
	assert.True(t, decimal.RequireFromString("120").Equal(s.TotalExpense))
	// "all" has no preceding window, so the delta falls back to the
	// zero-baseline rule.
	assert.True(t, decimal.RequireFromString("100").Equal(s.ExpenseChange))
}

func TestPeriodFilter_Week(t *testing.T) {
	txs := []common.Transaction{
		tx(now.AddDate(0, 0, -1), common.KindExpense, "10", ""),
		tx(now.AddDate(0, 0, -7), common.KindExpense, "20", ""),
		tx(now.AddDate(0, 0, -8), common.KindExpense, "30", ""),
		tx(now, common.KindExpense, "40", ""),
	}

	got := PeriodWeek.Filter(txs, now)
	require.Len(t, got, 3)
	for _, g := range got {
		assert.False(t, decimal.RequireFromString("30").Equal(g.Amount))
	}
}

func TestPeriodBounds(t *testing.T) {
	from, until := PeriodMonth.Bounds(now)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), until)

	from, until = PeriodAll.Bounds(now)
	assert.True(t, from.IsZero())
	assert.True(t, until.IsZero())
}
