// Package ingest implements the spreadsheet ingestion pipeline: header
// discovery, cell normalization, row projection into canonical transactions,
// and round-trippable export.
package ingest

import (
	"errors"
	"strings"

	"github.com/granaflow/grana-api/internal/domain/common"
)

// RawSheet is the ordered grid of untyped cell values read from one upload.
// It is produced once, projected once, and discarded.
type RawSheet [][]string

var (
	ErrHeaderNotFound  = errors.New("no header row found in sheet")
	ErrInvalidFileType = errors.New("unsupported file type: expected .xlsx or .xls")
	ErrEmptySheet      = errors.New("sheet contains no rows")
)

// Required header tokens, accent- and case-insensitive.
var (
	strictHeaderTokens  = []string{"data", "mes", "ano", "tipo", "descricao", "valor"}
	relaxedHeaderTokens = []string{"data", "tipo", "valor"}
)

// HeaderStrategy is one named attempt at locating the header row. Strategies
// are tried in order; the first row matching all required tokens wins, with
// no scoring between candidates.
type HeaderStrategy struct {
	Name     string
	StartRow int // 0-based, inclusive
	EndRow   int // 0-based, inclusive; -1 scans to the end of the sheet
	Required []string
}

// DefaultStrategies returns the two-pass scan used for the known template:
// a strict pass over the bounded window where the template places headers,
// then a relaxed full-sheet pass requiring only the minimal column set.
// The window bounds are a heuristic tied to the source template, hence
// caller-supplied.
func DefaultStrategies(windowStart, windowEnd int) []HeaderStrategy {
	return []HeaderStrategy{
		{
			Name:     "template-window",
			StartRow: windowStart,
			EndRow:   windowEnd,
			Required: strictHeaderTokens,
		},
		{
			Name:     "full-scan-relaxed",
			StartRow: 0,
			EndRow:   -1,
			Required: relaxedHeaderTokens,
		},
	}
}

// LocateHeader scans the sheet with each strategy in order and returns the
// index of the first row containing every required token. Returns
// ErrHeaderNotFound when no strategy matches.
func LocateHeader(sheet RawSheet, strategies []HeaderStrategy) (int, error) {
	if len(sheet) == 0 {
		return 0, ErrEmptySheet
	}

	for _, strat := range strategies {
		end := strat.EndRow
		if end < 0 || end >= len(sheet) {
			end = len(sheet) - 1
		}
		for i := strat.StartRow; i <= end; i++ {
			if i >= len(sheet) {
				break
			}
			if rowHasTokens(sheet[i], strat.Required) {
				return i, nil
			}
		}
	}

	return 0, ErrHeaderNotFound
}

// rowHasTokens reports whether every token appears in some normalized cell.
func rowHasTokens(row []string, tokens []string) bool {
	normalized := make([]string, 0, len(row))
	for _, cell := range row {
		normalized = append(normalized, normalizeHeader(cell))
	}

	for _, token := range tokens {
		found := false
		for _, cell := range normalized {
			if strings.Contains(cell, token) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// normalizeHeader lowercases and strips diacritics from a header cell.
func normalizeHeader(cell string) string {
	return strings.ToLower(common.Fold(strings.TrimSpace(cell)))
}

// isBlankRow reports whether every cell in the row is empty or whitespace.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
