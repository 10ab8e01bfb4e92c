package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Member is a chama participant tracked for the current collection cycle.
type Member struct {
	ID    string
	Name  string
	Phone string
	// HasPaid caches whether the member completed the current cycle. The ledger
	// stays the source of truth for amounts.
	HasPaid   bool
	TotalPaid decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
