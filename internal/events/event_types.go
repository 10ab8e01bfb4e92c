package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chamatrack/chama-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMemberRegistered    EventType = "member_registered"
	EventMemberStatusChanged EventType = "member_status_changed"
	EventPaymentRecorded     EventType = "payment_recorded"
	EventCycleReset          EventType = "cycle_reset"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	MemberID  string    `json:"member_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// MemberRegisteredPayload payload.
type MemberRegisteredPayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// MemberStatusChangedPayload payload.
type MemberStatusChangedPayload struct {
	OldPaid bool `json:"old_paid"`
	NewPaid bool `json:"new_paid"`
}

// PaymentRecordedPayload payload.
type PaymentRecordedPayload struct {
	PaymentID  string               `json:"payment_id"`
	MemberName string               `json:"member_name"`
	Phone      string               `json:"phone"`
	Amount     decimal.Decimal      `json:"amount"`
	Source     domain.PaymentSource `json:"source"`
}

// CycleResetPayload payload.
type CycleResetPayload struct {
	MembersReset int64 `json:"members_reset"`
}
