package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/granaflow/grana-api/internal/domain/common"
)

// excelEpoch is the serial-date origin used by Excel (the 1900 leap-year bug
// makes it 1899-12-30, not 1899-12-31).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const millisPerDay = 86400000

// portugueseMonths maps three-letter template abbreviations to full names.
var portugueseMonths = map[string]string{
	"JAN": "Janeiro",
	"FEV": "Fevereiro",
	"MAR": "Março",
	"ABR": "Abril",
	"MAI": "Maio",
	"JUN": "Junho",
	"JUL": "Julho",
	"AGO": "Agosto",
	"SET": "Setembro",
	"OUT": "Outubro",
	"NOV": "Novembro",
	"DEZ": "Dezembro",
}

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthName returns the full Portuguese name for a calendar month.
func MonthName(m time.Month) string {
	return monthNames[int(m)-1]
}

// ParseDate resolves a raw date cell into a calendar date (no time
// component). Numeric cells are Excel serial dates; "/" means DD/MM/YYYY or
// DD/MM/YY; "-" means ISO YYYY-MM-DD; anything else goes through a small
// format ladder. The boolean is false when the cell cannot be resolved; the
// caller decides whether to backfill.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return fromExcelSerial(serial), true
	}

	switch {
	case strings.Contains(s, "/"):
		return parseSlashDate(s)
	case strings.Contains(s, "-"):
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return truncateToDay(t), true
		}
		return time.Time{}, false
	default:
		for _, layout := range []string{"02.01.2006", "2 Jan 2006", "Jan 2, 2006"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
}

// fromExcelSerial converts an Excel serial date (days since 1899-12-30,
// fractional part is time of day) into a UTC calendar date.
func fromExcelSerial(serial float64) time.Time {
	ms := int64(serial * millisPerDay)
	return truncateToDay(excelEpoch.Add(time.Duration(ms) * time.Millisecond))
}

// parseSlashDate handles DD/MM/YYYY and DD/MM/YY (two-digit years are 2000s).
func parseSlashDate(s string) (time.Time, bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	day, errD := strconv.Atoi(strings.TrimSpace(parts[0]))
	month, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
	year, errY := strconv.Atoi(strings.TrimSpace(parts[2]))
	if errD != nil || errM != nil || errY != nil {
		return time.Time{}, false
	}
	if len(strings.TrimSpace(parts[2])) <= 2 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject rollovers like 31/02.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeMonth expands template month abbreviations ("JAN" -> "Janeiro").
// Unrecognized values pass through unchanged.
func NormalizeMonth(raw string) string {
	trimmed := strings.TrimSpace(raw)
	key := strings.ToUpper(common.Fold(trimmed))
	if full, ok := portugueseMonths[key]; ok {
		return full
	}
	return trimmed
}

// normalizeKind canonicalizes the raw "tipo" cell.
func normalizeKind(raw string) common.Kind {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return common.ParseKind(raw)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
