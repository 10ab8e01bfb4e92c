package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSource records which surface produced a ledger entry.
type PaymentSource string

const (
	PaymentSourceAdmin    PaymentSource = "ADMIN"
	PaymentSourceWhatsApp PaymentSource = "WHATSAPP"
)

// Payment is an immutable ledger event.
type Payment struct {
	ID         string
	MemberID   string
	Amount     decimal.Decimal
	OccurredAt time.Time
	Source     PaymentSource
	Reference  *string
	// Seq is the store-assigned insertion position.
	Seq int64
}

// MaxAmount is the largest amount whose minor units fit in an int64.
var MaxAmount = decimal.New(math.MaxInt64, -2)

// AmountInRange reports whether amount, rounded to two places, can be stored as cents.
func AmountInRange(amount decimal.Decimal) bool {
	return amount.Round(2).Abs().LessThanOrEqual(MaxAmount)
}

// AmountToCents converts a decimal amount to integer minor units, rounding half away from zero.
func AmountToCents(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

// CentsToAmount converts integer minor units back to a decimal amount.
func CentsToAmount(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
