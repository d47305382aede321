// Package search provides full-text search over transaction descriptions
// using Bleve, so users can find "ubr" when they typed "uber".
package search

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"github.com/granaflow/grana-api/internal/domain/common"
)

// Document is the indexed projection of a transaction.
type Document struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Kind        string  `json:"kind"`
	Category    string  `json:"category"`
	Month       string  `json:"month"`
	Year        float64 `json:"year"`
	Amount      float64 `json:"amount"`
}

// Result is a search hit with its relevance score.
type Result struct {
	TransactionID uuid.UUID
	Document      Document
	Score         float64
}

// Index wraps a Bleve index over the transaction set.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
}

// NewIndex creates or opens the index. An empty path yields an in-memory
// index, used in tests.
func NewIndex(path string) (*Index, error) {
	var (
		index bleve.Index
		err   error
	)
	m := buildMapping()

	if path == "" {
		index, err = bleve.NewMemOnly(m)
	} else if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", mkdirErr)
		}
		index, err = bleve.New(path, m)
	} else {
		index, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	return &Index{index: index}, nil
}

func buildMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = simple.Name

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	numericField := bleve.NewNumericFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("description", textField)
	doc.AddFieldMappingsAt("kind", keywordField)
	doc.AddFieldMappingsAt("category", keywordField)
	doc.AddFieldMappingsAt("month", keywordField)
	doc.AddFieldMappingsAt("year", numericField)
	doc.AddFieldMappingsAt("amount", numericField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = simple.Name
	return m
}

// IndexBatch (re)indexes a set of transactions.
func (ix *Index) IndexBatch(txs []common.Transaction) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	batch := ix.index.NewBatch()
	for _, tx := range txs {
		amount, _ := tx.Amount.Float64()
		doc := Document{
			ID:          tx.ID.String(),
			Description: tx.Description,
			Kind:        string(tx.Kind),
			Category:    string(tx.Category),
			Month:       tx.Month,
			Year:        float64(tx.Year),
			Amount:      amount,
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to index transaction %s: %w", doc.ID, err)
		}
	}
	if err := ix.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute index batch: %w", err)
	}
	return nil
}

// Search runs a match query with one edit of typo tolerance.
func (ix *Index) Search(query string, limit int) ([]Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetFuzziness(1)

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = limit
	req.Fields = []string{"*"}

	res, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return convertHits(res)
}

// SearchPrefix runs an autocomplete-style prefix query.
func (ix *Index) SearchPrefix(prefix string, limit int) ([]Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	req := bleve.NewSearchRequest(bleve.NewPrefixQuery(prefix))
	req.Size = limit
	req.Fields = []string{"*"}

	res, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("prefix search failed: %w", err)
	}
	return convertHits(res)
}

func convertHits(res *bleve.SearchResult) ([]Result, error) {
	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc := Document{ID: hit.ID}
		if v, ok := hit.Fields["description"].(string); ok {
			doc.Description = v
		}
		if v, ok := hit.Fields["kind"].(string); ok {
			doc.Kind = v
		}
		if v, ok := hit.Fields["category"].(string); ok {
			doc.Category = v
		}
		if v, ok := hit.Fields["month"].(string); ok {
			doc.Month = v
		}
		if v, ok := hit.Fields["year"].(float64); ok {
			doc.Year = v
		}
		if v, ok := hit.Fields["amount"].(float64); ok {
			doc.Amount = v
		}

		r := Result{Document: doc, Score: hit.Score}
		if id, err := uuid.Parse(hit.ID); err == nil {
			r.TransactionID = id
		}
		out = append(out, r)
	}
	return out, nil
}

// Delete removes one transaction from the index.
func (ix *Index) Delete(id uuid.UUID) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Delete(id.String())
}

// Clear drops every document.
func (ix *Index) Clear() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = 10000
	res, err := ix.index.Search(req)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	batch := ix.index.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	return ix.index.Batch(batch)
}

// DocCount returns the number of indexed transactions.
func (ix *Index) DocCount() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.DocCount()
}

// Close releases the underlying index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.index != nil {
		return ix.index.Close()
	}
	return nil
}
