package insights

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/granaflow/grana-api/internal/domain/common"
	"github.com/granaflow/grana-api/pkg/money"
)

// SpendingPulse is the locally computed month-to-date pace check. Unlike the
// remote insights it needs no network call and is always available.
type SpendingPulse struct {
	CurrentMonthSpend decimal.Decimal `json:"current_month_spend"`
	LastMonthSpend    decimal.Decimal `json:"last_month_spend"`
	SpendDelta        decimal.Decimal `json:"spend_delta"`
	PacePercent       float64         `json:"pace_percent"`
	IsOverPace        bool            `json:"is_over_pace"`
	PaceMessage       string          `json:"pace_message"`
	DayOfMonth        int             `json:"day_of_month"`
	TransactionCount  int             `json:"transaction_count"`
	TopCategories     []TopCategory   `json:"top_categories"`
	AsOfDate          time.Time       `json:"as_of_date"`
}

// TopCategory is one entry of the month's largest expense buckets.
type TopCategory struct {
	Category common.Category `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// paceThreshold marks spending more than 25% ahead of last month's
// same-day total as over pace.
const paceThreshold = 125.0

// Service combines the remote analysis client with local pulse computation.
type Service struct {
	client *Client
	logger *slog.Logger
}

func NewService(client *Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// GenerateInsights delegates to the hosted endpoint.
func (s *Service) GenerateInsights(ctx context.Context, txs []common.Transaction, salary decimal.Decimal) ([]Insight, error) {
	cards, err := s.client.GenerateInsights(ctx, txs, salary)
	if err != nil {
		s.logger.Warn("insight generation failed", slog.Any("error", err))
		return nil, err
	}
	return cards, nil
}

// PredictSpending delegates to the hosted endpoint.
func (s *Service) PredictSpending(ctx context.Context, txs []common.Transaction, salary decimal.Decimal) (*Prediction, error) {
	pred, err := s.client.PredictSpending(ctx, txs, salary)
	if err != nil {
		s.logger.Warn("spending prediction failed", slog.Any("error", err))
		return nil, err
	}
	return pred, nil
}

// ComputePulse compares month-to-date expenses against last month through
// the same day of month.
func (s *Service) ComputePulse(txs []common.Transaction, asOf time.Time) *SpendingPulse {
	currentStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastStart := currentStart.AddDate(0, -1, 0)
	cutoff := asOf.Day()

	pulse := &SpendingPulse{
		DayOfMonth: cutoff,
		AsOfDate:   asOf,
	}
	byCategory := make(map[common.Category]decimal.Decimal)

	for _, tx := range txs {
		if !tx.Kind.IsExpense() || tx.Date.After(asOf) {
			continue
		}
		switch {
		case !tx.Date.Before(currentStart):
			pulse.CurrentMonthSpend = pulse.CurrentMonthSpend.Add(tx.Amount)
			pulse.TransactionCount++
			if tx.Category != "" {
				byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
			}
		case !tx.Date.Before(lastStart) && tx.Date.Day() <= cutoff:
			pulse.LastMonthSpend = pulse.LastMonthSpend.Add(tx.Amount)
		}
	}

	pulse.SpendDelta = pulse.CurrentMonthSpend.Sub(pulse.LastMonthSpend)
	if pulse.LastMonthSpend.IsPositive() {
		ratio, _ := pulse.CurrentMonthSpend.Div(pulse.LastMonthSpend).Float64()
		pulse.PacePercent = ratio * 100
	} else if pulse.CurrentMonthSpend.IsPositive() {
		pulse.PacePercent = 100
	}
	pulse.IsOverPace = pulse.PacePercent > paceThreshold
	pulse.PaceMessage = paceMessage(pulse.PacePercent, pulse.CurrentMonthSpend)

	for cat, total := range byCategory {
		pulse.TopCategories = append(pulse.TopCategories, TopCategory{Category: cat, Total: total})
	}
	sort.Slice(pulse.TopCategories, func(i, j int) bool {
		return pulse.TopCategories[i].Total.GreaterThan(pulse.TopCategories[j].Total)
	})

	return pulse
}

func paceMessage(pace float64, spent decimal.Decimal) string {
	switch {
	case pace == 0:
		return "Sem gastos registrados neste mês"
	case pace <= 90:
		return fmt.Sprintf("%s gastos até agora, abaixo do ritmo do mês passado", money.FormatBRL(spent))
	case pace <= paceThreshold:
		return fmt.Sprintf("%s gastos até agora, no ritmo do mês passado", money.FormatBRL(spent))
	default:
		return fmt.Sprintf("%s gastos até agora, acima do ritmo do mês passado", money.FormatBRL(spent))
	}
}
