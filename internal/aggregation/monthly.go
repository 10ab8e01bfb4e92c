package aggregation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chamatrack/chama-service/internal/domain"
)

// MonthlyStats compares the current calendar month with the previous one.
type MonthlyStats struct {
	ThisMonth     decimal.Decimal
	LastMonth     decimal.Decimal
	GrowthPercent float64
}

// ComputeMonthlyStats partitions the ledger by calendar month in loc.
// The current month runs from day 1 00:00 through now inclusive; the previous
// month is taken whole. Growth is zero when the previous month is empty.
func ComputeMonthlyStats(ledger []domain.Payment, now time.Time, loc *time.Location) MonthlyStats {
	if loc == nil {
		loc = now.Location()
	}
	local := now.In(loc)
	thisStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	lastStart := thisStart.AddDate(0, -1, 0)

	stats := MonthlyStats{ThisMonth: decimal.Zero, LastMonth: decimal.Zero}
	for i := range ledger {
		at := ledger[i].OccurredAt
		switch {
		case !at.Before(thisStart) && !at.After(now):
			stats.ThisMonth = stats.ThisMonth.Add(ledger[i].Amount)
		case !at.Before(lastStart) && at.Before(thisStart):
			stats.LastMonth = stats.LastMonth.Add(ledger[i].Amount)
		}
	}

	if stats.LastMonth.IsPositive() {
		stats.GrowthPercent = stats.ThisMonth.Sub(stats.LastMonth).
			Div(stats.LastMonth).
			Mul(hundred).
			InexactFloat64()
	}
	return stats
}
