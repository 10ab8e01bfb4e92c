package aggregation

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chamatrack/chama-service/internal/domain"
)

// RecentPayment is a ledger entry joined with its member's display name.
type RecentPayment struct {
	PaymentID  string
	MemberID   string
	MemberName string
	Amount     decimal.Decimal
	OccurredAt time.Time
}

// RecentPayments returns the n latest ledger entries by occurrence time.
// The ledger is sorted explicitly since concurrent writers may append out of
// timestamp order; equal timestamps keep ledger order.
func RecentPayments(ledger []domain.Payment, names map[string]string, n int) []RecentPayment {
	if n <= 0 || len(ledger) == 0 {
		return []RecentPayment{}
	}
	sorted := make([]domain.Payment, len(ledger))
	copy(sorted, ledger)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.After(sorted[j].OccurredAt)
	})
	if n > len(sorted) {
		n = len(sorted)
	}

	out := make([]RecentPayment, 0, n)
	for _, p := range sorted[:n] {
		out = append(out, RecentPayment{
			PaymentID:  p.ID,
			MemberID:   p.MemberID,
			MemberName: names[p.MemberID],
			Amount:     p.Amount,
			OccurredAt: p.OccurredAt,
		})
	}
	return out
}

// MemberNames indexes member display names by id.
func MemberNames(members []domain.Member) map[string]string {
	names := make(map[string]string, len(members))
	for i := range members {
		names[members[i].ID] = members[i].Name
	}
	return names
}
