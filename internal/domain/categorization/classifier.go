package categorization

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/granaflow/grana-api/internal/domain/common"
)

// ClassificationError is a typed failure from the classification endpoint.
// RateLimited selects the exponential backoff schedule; Retryable=false
// (quota exhaustion) aborts immediately.
type ClassificationError struct {
	StatusCode  int
	Message     string
	RateLimited bool
	Retryable   bool
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed (status %d): %s", e.StatusCode, e.Message)
}

// ErrQuotaExceeded signals HTTP 402: the account is out of credits. It is
// never retried and is surfaced to the user distinctly from rate limiting.
var ErrQuotaExceeded = &ClassificationError{
	StatusCode: http.StatusPaymentRequired,
	Message:    "classification credits exhausted",
	Retryable:  false,
}

// Classifier resolves a transaction description to a budget bucket.
type Classifier interface {
	Classify(ctx context.Context, description string) (common.Category, error)
}

// HTTPClassifier calls the hosted classification endpoint. The request
// carries only the description; the response carries only the label, which
// is coerced into the fixed vocabulary.
type HTTPClassifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPClassifier creates a classifier client for the given endpoint.
func NewHTTPClassifier(endpoint, apiKey string) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type classifyRequest struct {
	Descricao string `json:"descricao"`
}

type classifyResponse struct {
	Categoria string `json:"categoria"`
}

// Classify performs one classification call. Unrecognized labels are coerced
// to "Desejo" by policy rather than rejected.
func (c *HTTPClassifier) Classify(ctx context.Context, description string) (common.Category, error) {
	body, err := json.Marshal(classifyRequest{Descricao: description})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", &ClassificationError{Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &ClassificationError{
			StatusCode:  resp.StatusCode,
			Message:     "rate limited",
			RateLimited: true,
			Retryable:   true,
		}
	case resp.StatusCode == http.StatusPaymentRequired:
		return "", ErrQuotaExceeded
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", &ClassificationError{
			StatusCode: resp.StatusCode,
			Message:    "unexpected status",
			Retryable:  true,
		}
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ClassificationError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("malformed response: %v", err),
			Retryable:  true,
		}
	}

	return common.CoerceCategory(out.Categoria), nil
}
