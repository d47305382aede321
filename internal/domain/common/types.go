// Package common holds the canonical finance vocabulary shared across domains:
// transaction kinds, budget categories, and the canonical transaction record.
package common

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies the direction of a transaction. The spreadsheet template
// uses Portuguese labels; synonyms are canonicalized at projection time.
type Kind string

const (
	KindIncome      Kind = "Receita"
	KindExpense     Kind = "Despesa"
	KindExtraIncome Kind = "Renda Extra"
)

// ParseKind canonicalizes a raw sheet label into a Kind.
// "Entrada" and "Saída" are legacy template synonyms; "Renda Extra" is its
// own kind and is never folded into income. Unknown non-empty labels pass
// through unchanged so the caller can still keep the row.
func ParseKind(raw string) Kind {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(Fold(trimmed)) {
	case "entrada", "receita":
		return KindIncome
	case "saida", "despesa":
		return KindExpense
	case "renda extra":
		return KindExtraIncome
	default:
		return Kind(trimmed)
	}
}

// IsIncome reports whether the kind contributes to total income.
func (k Kind) IsIncome() bool {
	return k == KindIncome || k == KindExtraIncome
}

// IsExpense reports whether the kind contributes to total expenses.
func (k Kind) IsExpense() bool {
	return k == KindExpense
}

// Category is the 50/30/20 budget bucket assigned to expenses.
type Category string

const (
	CategoryEssential Category = "Essencial"
	CategoryWant      Category = "Desejo"
	CategorySaving    Category = "Poupança"
)

// CoerceCategory validates a classifier label against the fixed vocabulary.
// Anything unrecognized is coerced to "Desejo" by policy, so a misbehaving
// classifier can never introduce a new bucket.
func CoerceCategory(raw string) Category {
	switch strings.ToLower(Fold(strings.TrimSpace(raw))) {
	case "essencial", "essential":
		return CategoryEssential
	case "poupanca", "saving", "savings":
		return CategorySaving
	default:
		return CategoryWant
	}
}

// ValidCategory reports whether raw already names one of the three buckets.
func ValidCategory(raw string) bool {
	switch strings.ToLower(Fold(strings.TrimSpace(raw))) {
	case "essencial", "essential", "desejo", "want", "poupanca", "saving", "savings":
		return true
	}
	return false
}

// Transaction is the canonical, fully normalized record produced by the
// ingestion pipeline. Month and Year are derived from Date at creation time
// only and never recomputed afterwards.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	Date        time.Time       `json:"date"`
	Month       string          `json:"month"`
	Year        int             `json:"year"`
	Kind        Kind            `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category,omitempty"`
}

// Categorized reports whether the transaction already has a budget bucket.
func (t *Transaction) Categorized() bool {
	return t.Category != ""
}

// NormalizeDescription is the single cache-key rule for the category cache:
// case-fold, trim, and collapse inner whitespace. Every call site uses this,
// never the raw description.
func NormalizeDescription(desc string) string {
	return strings.ToLower(strings.Join(strings.Fields(desc), " "))
}

// Debt is a tracked liability (credit card, loan, informal debt).
type Debt struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	DueDate   *time.Time      `json:"due_date,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Goal is a savings target with optional deadline.
type Goal struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Target    decimal.Decimal `json:"target"`
	Saved     decimal.Decimal `json:"saved"`
	Deadline  *time.Time      `json:"deadline,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
