package search

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granaflow/grana-api/internal/domain/common"
)

func memIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := NewIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func indexedFixture(t *testing.T, ix *Index) []common.Transaction {
	t.Helper()
	txs := []common.Transaction{
		{
			ID:          uuid.New(),
			Date:        time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
			Month:       "Março",
			Year:        2024,
			Kind:        common.KindExpense,
			Description: "uber trip centro",
			Amount:      decimal.RequireFromString("24.90"),
			Category:    common.CategoryWant,
		},
		{
			ID:          uuid.New(),
			Date:        time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC),
			Month:       "Março",
			Year:        2024,
			Kind:        common.KindExpense,
			Description: "supermercado extra",
			Amount:      decimal.RequireFromString("452.80"),
			Category:    common.CategoryEssential,
		},
	}
	require.NoError(t, ix.IndexBatch(txs))
	return txs
}

func TestIndex_SearchExact(t *testing.T) {
	ix := memIndex(t)
	txs := indexedFixture(t, ix)

	results, err := ix.Search("uber", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, txs[0].ID, results[0].TransactionID)
	assert.Equal(t, "uber trip centro", results[0].Document.Description)
	assert.Equal(t, string(common.CategoryWant), results[0].Document.Category)
}

func TestIndex_SearchTypoTolerant(t *testing.T) {
	ix := memIndex(t)
	txs := indexedFixture(t, ix)

	results, err := ix.Search("ubr", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, txs[0].ID, results[0].TransactionID)
}

func TestIndex_SearchPrefix(t *testing.T) {
	ix := memIndex(t)
	txs := indexedFixture(t, ix)

	results, err := ix.SearchPrefix("superm", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, txs[1].ID, results[0].TransactionID)
}

func TestIndex_DeleteAndCount(t *testing.T) {
	ix := memIndex(t)
	txs := indexedFixture(t, ix)

	n, err := ix.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	require.NoError(t, ix.Delete(txs[0].ID))
	n, err = ix.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestIndex_Clear(t *testing.T) {
	ix := memIndex(t)
	indexedFixture(t, ix)

	require.NoError(t, ix.Clear())
	n, err := ix.DocCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}
