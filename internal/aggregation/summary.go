// Package aggregation derives collection reports from the member registry and
// the payment ledger. Every function is pure and safe for concurrent use.
package aggregation

import (
	"github.com/shopspring/decimal"

	"github.com/chamatrack/chama-service/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Summary is the derived collection report for the current cycle.
type Summary struct {
	TotalMembers         int
	PaidMembers          int
	UnpaidMembers        int
	TotalCollected       decimal.Decimal
	ExpectedTotal        decimal.Decimal
	CollectionPercentage float64
	PaymentRate          float64
}

// ComputeSummary counts paid flags over members and sums the ledger.
// Percentages are zero when their denominator is zero and are never clamped,
// so overpayment yields a collection percentage above 100.
func ComputeSummary(members []domain.Member, ledger []domain.Payment, settings domain.Settings) Summary {
	summary := Summary{TotalMembers: len(members)}
	for i := range members {
		if members[i].HasPaid {
			summary.PaidMembers++
		}
	}
	summary.UnpaidMembers = summary.TotalMembers - summary.PaidMembers

	summary.TotalCollected = SumPayments(ledger)
	summary.ExpectedTotal = settings.ExpectedPerMember.Mul(decimal.NewFromInt(int64(summary.TotalMembers)))

	if summary.ExpectedTotal.IsPositive() {
		summary.CollectionPercentage = summary.TotalCollected.Div(summary.ExpectedTotal).Mul(hundred).InexactFloat64()
	}
	if summary.TotalMembers > 0 {
		summary.PaymentRate = decimal.NewFromInt(int64(summary.PaidMembers)).
			Div(decimal.NewFromInt(int64(summary.TotalMembers))).
			Mul(hundred).
			InexactFloat64()
	}
	return summary
}

// SumPayments totals ledger amounts.
func SumPayments(ledger []domain.Payment) decimal.Decimal {
	total := decimal.Zero
	for i := range ledger {
		total = total.Add(ledger[i].Amount)
	}
	return total
}

// MemberTotals sums ledger amounts per member id.
func MemberTotals(ledger []domain.Payment) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for i := range ledger {
		totals[ledger[i].MemberID] = totals[ledger[i].MemberID].Add(ledger[i].Amount)
	}
	return totals
}
