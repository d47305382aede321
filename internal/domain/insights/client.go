// Package insights proxies the hosted analysis endpoints: narrative
// insights over a transaction batch, and next-period spending predictions.
// Both are opaque services. We send the data, we render what comes back.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/granaflow/grana-api/internal/domain/common"
)

// maxBatchRecords mirrors the server-side validator. Batches are trimmed to
// the most recent records rather than rejected.
const maxBatchRecords = 1000

// Insight is one narrative card returned by the analysis endpoint.
type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
}

// Prediction is the next-period spending forecast.
type Prediction struct {
	NextPeriodEstimate decimal.Decimal            `json:"next_period_estimate"`
	TrendDirection     string                     `json:"trend_direction"`
	TrendPercent       float64                    `json:"trend_percent"`
	ByCategory         map[string]decimal.Decimal `json:"by_category"`
	Recommendations    []string                   `json:"recommendations"`
}

type batchRecord struct {
	Data      string `json:"data"`
	Tipo      string `json:"tipo"`
	Descricao string `json:"descricao"`
	Valor     string `json:"valor"`
	Categoria string `json:"categoria,omitempty"`
}

type analysisRequest struct {
	Transactions []batchRecord `json:"transactions"`
	Salary       string        `json:"salary,omitempty"`
}

type insightsResponse struct {
	Insights []Insight `json:"insights"`
}

// Client calls the hosted insight and prediction endpoints.
type Client struct {
	insightsURL   string
	predictionURL string
	apiKey        string
	http          *http.Client
}

func NewClient(insightsURL, predictionURL, apiKey string) *Client {
	return &Client{
		insightsURL:   insightsURL,
		predictionURL: predictionURL,
		apiKey:        apiKey,
		http:          &http.Client{Timeout: 60 * time.Second},
	}
}

// GenerateInsights sends the batch plus the user's salary and returns the
// narrative cards.
func (c *Client) GenerateInsights(ctx context.Context, txs []common.Transaction, salary decimal.Decimal) ([]Insight, error) {
	var out insightsResponse
	if err := c.post(ctx, c.insightsURL, buildRequest(txs, salary), &out); err != nil {
		return nil, err
	}
	return out.Insights, nil
}

// PredictSpending returns the next-period forecast for the same batch.
func (c *Client) PredictSpending(ctx context.Context, txs []common.Transaction, salary decimal.Decimal) (*Prediction, error) {
	var out Prediction
	if err := c.post(ctx, c.predictionURL, buildRequest(txs, salary), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func buildRequest(txs []common.Transaction, salary decimal.Decimal) analysisRequest {
	if len(txs) > maxBatchRecords {
		txs = txs[len(txs)-maxBatchRecords:]
	}
	records := make([]batchRecord, 0, len(txs))
	for _, tx := range txs {
		records = append(records, batchRecord{
			Data:      tx.Date.Format("02/01/2006"),
			Tipo:      string(tx.Kind),
			Descricao: tx.Description,
			Valor:     tx.Amount.String(),
			Categoria: string(tx.Category),
		})
	}
	req := analysisRequest{Transactions: records}
	if salary.IsPositive() {
		req.Salary = salary.String()
	}
	return req
}

func (c *Client) post(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("analysis endpoint returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
