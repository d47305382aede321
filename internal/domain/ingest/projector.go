package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/granaflow/grana-api/internal/domain/common"
	"github.com/granaflow/grana-api/pkg/money"
)

// columnRole identifies what a sheet column feeds in the canonical record.
type columnRole int

const (
	roleIgnore columnRole = iota
	roleDate
	roleKind
	roleDescription
	roleCategory
	roleMonth
	roleYear
	roleAmount
)

// Projector maps raw rows into canonical transactions. The clock and ID
// generator are injectable so projection is a pure function of its input in
// tests.
type Projector struct {
	now   func() time.Time
	newID func() uuid.UUID
}

// NewProjector creates a projector with the real clock and random UUIDs.
func NewProjector() *Projector {
	return &Projector{
		now:   time.Now,
		newID: uuid.New,
	}
}

// WithClock overrides the time source used to backfill missing dates.
func (p *Projector) WithClock(now func() time.Time) *Projector {
	p.now = now
	return p
}

// WithIDFunc overrides the transaction ID generator.
func (p *Projector) WithIDFunc(newID func() uuid.UUID) *Projector {
	p.newID = newID
	return p
}

// Project converts every data row after headerRow into a canonical
// transaction, silently dropping rows that fail the completeness policy:
// a row is kept only when it has a kind, a non-empty description, and at
// least one cell that actually carried data. Missing date/month/year on an
// otherwise valid row are backfilled from the current date instead of
// rejecting the row. Unrecognized columns are ignored.
func (p *Projector) Project(sheet RawSheet, headerRow int) []common.Transaction {
	if headerRow < 0 || headerRow >= len(sheet) {
		return nil
	}

	roles := resolveRoles(sheet[headerRow])
	out := make([]common.Transaction, 0, len(sheet)-headerRow-1)

	for i := headerRow + 1; i < len(sheet); i++ {
		row := sheet[i]
		if isBlankRow(row) {
			continue
		}
		if tx, ok := p.projectRow(row, roles); ok {
			out = append(out, tx)
		}
	}

	return out
}

// resolveRoles assigns a role to each column by normalized header substring.
// Substring-contains tolerates decorated headers like "Descrição " or
// "Valor (R$)".
func resolveRoles(headers []string) []columnRole {
	roles := make([]columnRole, len(headers))
	for i, h := range headers {
		norm := normalizeHeader(h)
		switch {
		case strings.Contains(norm, "descricao"):
			roles[i] = roleDescription
		case strings.Contains(norm, "categoria"):
			roles[i] = roleCategory
		case strings.Contains(norm, "data"):
			roles[i] = roleDate
		case strings.Contains(norm, "tipo"):
			roles[i] = roleKind
		case strings.Contains(norm, "mes"):
			roles[i] = roleMonth
		case strings.Contains(norm, "ano"):
			roles[i] = roleYear
		case strings.Contains(norm, "valor"):
			roles[i] = roleAmount
		default:
			roles[i] = roleIgnore
		}
	}
	return roles
}

func (p *Projector) projectRow(row []string, roles []columnRole) (common.Transaction, bool) {
	var (
		date    time.Time
		dateOK  bool
		kind    common.Kind
		desc    string
		cat     common.Category
		month   string
		year    int
		amount  = decimal.Zero
		hasData bool
	)

	for i, role := range roles {
		if i >= len(row) {
			break
		}
		cell := strings.TrimSpace(row[i])
		if cell == "" {
			continue
		}

		switch role {
		case roleDate:
			if d, ok := ParseDate(cell); ok {
				date, dateOK = d, true
				hasData = true
			}
		case roleKind:
			kind = normalizeKind(cell)
			hasData = true
		case roleDescription:
			desc = cell
			hasData = true
		case roleCategory:
			if common.ValidCategory(cell) {
				cat = common.CoerceCategory(cell)
				hasData = true
			}
		case roleMonth:
			month = NormalizeMonth(cell)
			hasData = true
		case roleYear:
			if y, err := strconv.Atoi(cell); err == nil {
				year = y
				hasData = true
			}
		case roleAmount:
			// Symbol-only or unparseable amounts stay zero and do not
			// count as data, so placeholder rows cannot survive on the
			// amount column alone.
			if v, ok := money.ParseAmount(cell); ok {
				amount = v
				hasData = true
			}
		}
	}

	if kind == "" || desc == "" || !hasData {
		return common.Transaction{}, false
	}

	if !dateOK {
		date = truncateToDay(p.now())
	}
	if month == "" {
		month = MonthName(date.Month())
	}
	if year == 0 {
		year = date.Year()
	}

	return common.Transaction{
		ID:          p.newID(),
		Date:        date,
		Month:       month,
		Year:        year,
		Kind:        kind,
		Description: desc,
		Amount:      amount,
		Category:    cat,
	}, true
}
