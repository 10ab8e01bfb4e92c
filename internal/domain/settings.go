package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings describes the current collection cycle.
type Settings struct {
	DueDate           *time.Time
	ExpectedPerMember decimal.Decimal
	Currency          string
	UpdatedAt         time.Time
}
