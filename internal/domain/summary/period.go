// Package summary derives period-filtered metrics from the canonical
// transaction set: totals, balance, the 50/30/20 split, and
// period-over-period deltas.
package summary

import (
	"time"

	"github.com/granaflow/grana-api/internal/domain/common"
)

// Period is a user-selected time window. It is a pure filter over dates,
// recomputed on every read and never stored per transaction.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// ParsePeriod validates a raw period string, defaulting to "all".
func ParsePeriod(raw string) Period {
	switch Period(raw) {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return Period(raw)
	default:
		return PeriodAll
	}
}

// window is a half-open date range [from, until).
type window struct {
	from      time.Time
	until     time.Time
	boundless bool
}

func (w window) contains(d time.Time) bool {
	if w.boundless {
		return true
	}
	return !d.Before(w.from) && d.Before(w.until)
}

// currentWindow resolves the period against "now": week is the trailing
// seven days inclusive, month and year follow the calendar.
func (p Period) currentWindow(now time.Time) window {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case PeriodWeek:
		return window{from: day.AddDate(0, 0, -7), until: day.AddDate(0, 0, 1)}
	case PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return window{from: start, until: start.AddDate(0, 1, 0)}
	case PeriodYear:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return window{from: start, until: start.AddDate(1, 0, 0)}
	default:
		return window{boundless: true}
	}
}

// previousWindow is the immediately preceding window of the same length,
// used for the period-over-period deltas. "all" has no predecessor; the
// empty window makes the delta fall back to the zero-baseline rule.
func (p Period) previousWindow(now time.Time) window {
	cur := p.currentWindow(now)
	if cur.boundless {
		return window{}
	}
	span := cur.until.Sub(cur.from)
	switch p {
	case PeriodMonth:
		return window{from: cur.from.AddDate(0, -1, 0), until: cur.from}
	case PeriodYear:
		return window{from: cur.from.AddDate(-1, 0, 0), until: cur.from}
	default:
		return window{from: cur.from.Add(-span), until: cur.from}
	}
}

// Bounds exposes the current window as a half-open [from, until) pair for
// repository filters. "all" returns zero times, meaning no constraint.
func (p Period) Bounds(now time.Time) (time.Time, time.Time) {
	w := p.currentWindow(now)
	if w.boundless {
		return time.Time{}, time.Time{}
	}
	return w.from, w.until
}

// Filter returns the transactions whose date falls inside the period
// resolved against now. Order is preserved.
func (p Period) Filter(txs []common.Transaction, now time.Time) []common.Transaction {
	w := p.currentWindow(now)
	out := make([]common.Transaction, 0, len(txs))
	for _, tx := range txs {
		if w.contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}
