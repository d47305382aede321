package ingest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granaflow/grana-api/internal/domain/common"
)

var fixedNow = time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

func testProjector() *Projector {
	return NewProjector().
		WithClock(func() time.Time { return fixedNow }).
		WithIDFunc(func() uuid.UUID { return uuid.MustParse("11111111-2222-3333-4444-555555555555") })
}

func TestProject_FullRow(t *testing.T) {
	sheet := RawSheet{
		{"Data", "Mês", "Ano", "Tipo", "Descrição", "Valor", "Categoria"},
		{"15/03/2024", "MAR", "2024", "Saída", "Supermercado Pão de Açúcar", "R$ 452,80", "Essencial"},
	}

	txs := testProjector().Project(sheet, 0)
	require.Len(t, txs, 1)

	tx := txs[0]
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), tx.Date)
	assert.Equal(t, "Março", tx.Month)
	assert.Equal(t, 2024, tx.Year)
	assert.Equal(t, common.KindExpense, tx.Kind)
	assert.Equal(t, "Supermercado Pão de Açúcar", tx.Description)
	assert.True(t, decimal.RequireFromString("452.80").Equal(tx.Amount))
	assert.Equal(t, common.CategoryEssential, tx.Category)
}

func TestProject_KindCanonicalization(t *testing.T) {
	sheet := RawSheet{
		{"Data", "Tipo", "Descrição", "Valor"},
		{"01/04/2024", "Entrada", "Salário", "5000"},
		{"02/04/2024", "Saída", "Aluguel", "1800"},
		{"03/04/2024", "Renda Extra", "Freela", "900"},
	}

	txs := testProjector().Project(sheet, 0)
	require.Len(t, txs, 3)
	assert.Equal(t, common.KindIncome, txs[0].Kind)
	assert.Equal(t, common.KindExpense, txs[1].Kind)
	assert.Equal(t, common.KindExtraIncome, txs[2].Kind)
}

func TestProject_DropsIncompleteRows(t *testing.T) {
	sheet := RawSheet{
		{"Data", "Tipo", "Descrição", "Valor"},
		{"", "", "", ""},                     // blank
		{"01/04/2024", "", "Sem tipo", "10"}, // no kind
		{"01/04/2024", "Saída", "", "10"},    // no description
		{"", "Saída", "Placeholder", ""},
	}

	txs := testProjector().Project(sheet, 0)
	// The last row has a kind and a description, which count as data; it
	// survives with a zero amount and a backfilled date.
	require.Len(t, txs, 1)
	assert.Equal(t, "Placeholder", txs[0].Description)
	assert.True(t, txs[0].Amount.IsZero())
}

func TestProject_SymbolOnlyAmountRows(t *testing.T) {
	// Boundary cells that carry no numeric value must not make the amount
	// non-zero, and rows with nothing else are dropped.
	sheet := RawSheet{
		{"Data", "Tipo", "Descrição", "Valor"},
		{"", "", "", "R$"},
		{"", "", "", "R$ "},
		{"01/04/2024", "Saída", "Café", "R$ 8,50"},
	}

	txs := testProjector().Project(sheet, 0)
	require.Len(t, txs, 1)
	assert.Equal(t, "Café", txs[0].Description)
	assert.True(t, decimal.RequireFromString("8.5").Equal(txs[0].Amount))
}

func TestProject_BackfillsDateMonthYear(t *testing.T) {
	sheet := RawSheet{
		{"Data", "Mês", "Ano", "Tipo", "Descrição", "Valor"},
		{"", "", "", "Saída", "Assinatura", "39,90"},
	}

	txs := testProjector().Project(sheet, 0)
	require.Len(t, txs, 1)

	tx := txs[0]
	assert.Equal(t, time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC), tx.Date)
	assert.Equal(t, "Junho", tx.Month)
	assert.Equal(t, 2024, tx.Year)
}

func TestProject_MonthYearIndependentOfDate(t *testing.T) {
	// Sheet-provided month and year are kept even when they disagree with
	// the date column; they are backfilled only when absent.
	sheet := RawSheet{
		{"Data", "Mês", "Ano", "Tipo", "Descrição", "Valor"},
		{"15/03/2024", "ABR", "2023", "Saída", "Ajuste", "10"},
	}

	txs := testProjector().Project(sheet, 0)
	require.Len(t, txs, 1)
	assert.Equal(t, "Abril", txs[0].Month)
	assert.Equal(t, 2023, txs[0].Year)
}

func TestProject_InvalidSheetCategoryIgnored(t *testing.T) {
	sheet := RawSheet{
		{"Data", "Tipo", "Descrição", "Valor", "Categoria"},
		{"01/04/2024", "Saída", "Mercado", "100", "Comida"},
	}

	txs := testProjector().Project(sheet, 0)
	require.Len(t, txs, 1)
	assert.Empty(t, txs[0].Category)
}

func TestProject_Idempotent(t *testing.T) {
	sheet := RawSheet{
		{"Data", "Tipo", "Descrição", "Valor"},
		{"01/04/2024", "Saída", "Mercado", "100"},
		{"02/04/2024", "Entrada", "Salário", "5000"},
	}

	p := testProjector()
	first := p.Project(sheet, 0)
	second := p.Project(sheet, 0)
	assert.Equal(t, first, second)
}

func TestProject_HeaderRowOutOfRange(t *testing.T) {
	sheet := RawSheet{{"Data", "Tipo", "Valor"}}
	assert.Empty(t, testProjector().Project(sheet, 5))
	assert.Empty(t, testProjector().Project(sheet, -1))
}
