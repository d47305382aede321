package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granaflow/grana-api/internal/domain/categorization"
	"github.com/granaflow/grana-api/internal/domain/common"
	"github.com/granaflow/grana-api/internal/domain/ingest"
	"github.com/granaflow/grana-api/internal/domain/insights"
	"github.com/granaflow/grana-api/internal/domain/search"
	"github.com/granaflow/grana-api/internal/domain/transactions"
)

// memRepo is an in-memory transactions.Repository for handler tests.
type memRepo struct {
	mu  sync.Mutex
	txs []common.Transaction
}

func (m *memRepo) InsertBatch(_ context.Context, txs []common.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = append(m.txs, txs...)
	return nil
}

func (m *memRepo) List(_ context.Context, filter transactions.Filter) ([]common.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]common.Transaction, 0, len(m.txs))
	for _, tx := range m.txs {
		if filter.Kind != "" && tx.Kind != filter.Kind {
			continue
		}
		if filter.Category != "" && tx.Category != filter.Category {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*common.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txs {
		if m.txs[i].ID == id {
			tx := m.txs[i]
			return &tx, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memRepo) UpdateCategory(_ context.Context, id uuid.UUID, cat common.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txs {
		if m.txs[i].ID == id {
			m.txs[i].Category = cat
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txs {
		if m.txs[i].ID == id {
			m.txs = append(m.txs[:i], m.txs[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memRepo) DeleteAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = nil
	return nil
}

func (m *memRepo) ListUncategorized(_ context.Context, limit int) ([]common.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []common.Transaction
	for _, tx := range m.txs {
		if tx.Kind.IsExpense() && !tx.Categorized() {
			out = append(out, tx)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fixedClassifier struct{ cat common.Category }

func (f fixedClassifier) Classify(context.Context, string) (common.Category, error) {
	return f.cat, nil
}

type recordingSweeper struct{ runs atomic.Int32 }

func (s *recordingSweeper) RunNow() { s.runs.Add(1) }

func newTestServer(t *testing.T, repo *memRepo) (*httptest.Server, *recordingSweeper) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	policy := categorization.DefaultPolicy()
	policy.Sleep = func(context.Context, time.Duration) error { return nil }
	orchestrator := categorization.NewOrchestrator(
		categorization.NewMemoryStore(),
		categorization.NewEngine(categorization.DefaultRules),
		fixedClassifier{cat: common.CategoryWant},
		policy,
		time.Nanosecond,
		logger,
	)

	idx, err := search.NewIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	sweeper := &recordingSweeper{}
	h := NewHandler(
		ingest.NewService(ingest.DefaultStrategies(10, 24), logger),
		repo,
		nil,
		nil,
		orchestrator,
		insights.NewService(nil, logger),
		idx,
		sweeper,
		logger,
	)
	server := httptest.NewServer(NewRouter(h, []string{"*"}, logger))
	t.Cleanup(server.Close)
	return server, sweeper
}

func uploadBody(t *testing.T, txs []common.Transaction) (*bytes.Buffer, string) {
	t.Helper()
	data, err := ingest.ExportXLSX(txs)
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "planilha.xlsx")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func sampleTxs() []common.Transaction {
	return []common.Transaction{
		{
			ID:          uuid.New(),
			Date:        time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
			Month:       "Junho",
			Year:        2024,
			Kind:        common.KindExpense,
			Description: "uber centro",
			Amount:      decimal.RequireFromString("24.90"),
		},
		{
			ID:          uuid.New(),
			Date:        time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC),
			Month:       "Junho",
			Year:        2024,
			Kind:        common.KindIncome,
			Description: "salário",
			Amount:      decimal.RequireFromString("5000"),
		},
	}
}

func TestUpload_EndToEnd(t *testing.T) {
	repo := &memRepo{}
	server, _ := newTestServer(t, repo)

	body, contentType := uploadBody(t, sampleTxs())
	resp, err := http.Post(server.URL+"/api/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		RowsAccepted   int                   `json:"rows_accepted"`
		Categorization categorization.Report `json:"categorization"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 2, out.RowsAccepted)
	// "uber centro" hits the local rules; the income row is not a candidate.
	assert.Equal(t, 1, out.Categorization.Candidates)
	assert.Equal(t, 1, out.Categorization.FromRules)

	stored, err := repo.List(context.Background(), transactions.Filter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestUpload_RejectsWrongFileType(t *testing.T) {
	server, _ := newTestServer(t, &memRepo{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notas.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("not a spreadsheet"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(server.URL+"/api/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestListTransactions_KindFilter(t *testing.T) {
	repo := &memRepo{txs: sampleTxs()}
	server, _ := newTestServer(t, repo)

	resp, err := http.Get(server.URL + "/api/transactions?kind=Despesa")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Count)
}

func TestSummaryEndpoint(t *testing.T) {
	repo := &memRepo{txs: sampleTxs()}
	server, _ := newTestServer(t, repo)

	resp, err := http.Get(server.URL + "/api/summary?period=all")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		TotalIncome  decimal.Decimal `json:"total_income"`
		TotalExpense decimal.Decimal `json:"total_expense"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, decimal.RequireFromString("5000").Equal(out.TotalIncome))
	assert.True(t, decimal.RequireFromString("24.9").Equal(out.TotalExpense))
}

func TestUpdateCategory_Validation(t *testing.T) {
	repo := &memRepo{txs: sampleTxs()}
	server, _ := newTestServer(t, repo)

	id := repo.txs[0].ID
	req, err := http.NewRequest(http.MethodPatch,
		server.URL+"/api/transactions/"+id.String()+"/category",
		bytes.NewBufferString(`{"category":"Comida"}`))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateCategory_Success(t *testing.T) {
	repo := &memRepo{txs: sampleTxs()}
	server, _ := newTestServer(t, repo)

	id := repo.txs[0].ID
	req, err := http.NewRequest(http.MethodPatch,
		server.URL+"/api/transactions/"+id.String()+"/category",
		bytes.NewBufferString(`{"category":"Essencial"}`))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tx, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, common.CategoryEssential, tx.Category)
}

func TestExportCSVEndpoint(t *testing.T) {
	repo := &memRepo{txs: sampleTxs()}
	server, _ := newTestServer(t, repo)

	resp, err := http.Get(server.URL + "/api/export?format=csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".csv")
}

func TestSearchEndpoint_Prefix(t *testing.T) {
	repo := &memRepo{}
	server, _ := newTestServer(t, repo)

	// Upload feeds the search index, so the prefix query has data to hit.
	body, contentType := uploadBody(t, sampleTxs())
	resp, err := http.Post(server.URL+"/api/upload", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/search?q=ube&prefix=true")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Count)
}

func TestSweepEndpoint(t *testing.T) {
	server, sweeper := newTestServer(t, &memRepo{})

	resp, err := http.Post(server.URL+"/api/categorization/sweep", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, int32(1), sweeper.runs.Load())
}

func TestSearchEndpoint_RequiresQuery(t *testing.T) {
	server, _ := newTestServer(t, &memRepo{})

	resp, err := http.Get(server.URL + "/api/search")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t, &memRepo{})

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
