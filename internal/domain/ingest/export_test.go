package ingest

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granaflow/grana-api/internal/domain/common"
)

func exportFixture() []common.Transaction {
	return []common.Transaction{
		{
			ID:          uuid.New(),
			Date:        time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
			Month:       "Março",
			Year:        2024,
			Kind:        common.KindExpense,
			Description: "Supermercado",
			Amount:      decimal.RequireFromString("452.80"),
			Category:    common.CategoryEssential,
		},
		{
			ID:          uuid.New(),
			Date:        time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			Month:       "Março",
			Year:        2024,
			Kind:        common.KindIncome,
			Description: "Salário",
			Amount:      decimal.RequireFromString("5000"),
		},
	}
}

func TestExportXLSX_RoundTrip(t *testing.T) {
	txs := exportFixture()

	data, err := ExportXLSX(txs)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	svc := NewService(DefaultStrategies(10, 24), slog.New(slog.DiscardHandler))
	result, err := svc.Ingest(context.Background(), "export.xlsx", "", data)
	require.NoError(t, err)
	require.Len(t, result.Transactions, len(txs))

	for i, got := range result.Transactions {
		want := txs[i]
		assert.Equal(t, want.Date, got.Date, "row %d date", i)
		assert.Equal(t, want.Month, got.Month, "row %d month", i)
		assert.Equal(t, want.Year, got.Year, "row %d year", i)
		assert.Equal(t, want.Kind, got.Kind, "row %d kind", i)
		assert.Equal(t, want.Description, got.Description, "row %d description", i)
		assert.True(t, want.Amount.Equal(got.Amount), "row %d amount: want %s got %s", i, want.Amount, got.Amount)
		assert.Equal(t, want.Category, got.Category, "row %d category", i)
	}
}

func TestExportCSV_ColumnOrder(t *testing.T) {
	data, err := ExportCSV(exportFixture())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "Data,Mes,Ano,Tipo,Descricao,Valor,Categoria", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "15/03/2024")
	assert.Contains(t, lines[1], "452.8")
	assert.Contains(t, lines[2], "Salário")
}

func TestIngest_RejectsUnknownFileType(t *testing.T) {
	svc := NewService(DefaultStrategies(10, 24), slog.New(slog.DiscardHandler))
	_, err := svc.Ingest(context.Background(), "dados.pdf", "application/pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, ErrInvalidFileType)
}

func TestIngest_AcceptsExcelMIMEWithOddExtension(t *testing.T) {
	txs := exportFixture()
	data, err := ExportXLSX(txs)
	require.NoError(t, err)

	svc := NewService(DefaultStrategies(10, 24), slog.New(slog.DiscardHandler))
	result, err := svc.Ingest(context.Background(), "upload.bin",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	require.NoError(t, err)
	assert.Len(t, result.Transactions, len(txs))
}
