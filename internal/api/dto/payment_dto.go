package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chamatrack/chama-service/internal/aggregation"
	"github.com/chamatrack/chama-service/internal/domain"
)

// RecordPaymentRequest payload for recording a payment. Amount accepts a JSON
// number or a decimal string.
type RecordPaymentRequest struct {
	MemberID string           `json:"member_id" validate:"required"`
	Amount   *decimal.Decimal `json:"amount" validate:"required"`
}

// PaymentResponse is the public ledger entry shape.
type PaymentResponse struct {
	ID         string    `json:"id"`
	MemberID   string    `json:"member_id"`
	Amount     string    `json:"amount"`
	Source     string    `json:"source"`
	Reference  *string   `json:"reference,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewPaymentResponse maps a domain payment.
func NewPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID,
		MemberID:   p.MemberID,
		Amount:     p.Amount.StringFixed(2),
		Source:     string(p.Source),
		Reference:  p.Reference,
		OccurredAt: p.OccurredAt,
	}
}

// NewPaymentList maps a slice of payments.
func NewPaymentList(payments []domain.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, NewPaymentResponse(&payments[i]))
	}
	return out
}

// RecentPaymentResponse is one row of the recent payments feed.
type RecentPaymentResponse struct {
	PaymentID  string    `json:"payment_id"`
	MemberID   string    `json:"member_id"`
	MemberName string    `json:"member_name"`
	Amount     string    `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewRecentPayments maps aggregation output.
func NewRecentPayments(recent []aggregation.RecentPayment) []RecentPaymentResponse {
	out := make([]RecentPaymentResponse, 0, len(recent))
	for _, r := range recent {
		out = append(out, RecentPaymentResponse{
			PaymentID:  r.PaymentID,
			MemberID:   r.MemberID,
			MemberName: r.MemberName,
			Amount:     r.Amount.StringFixed(2),
			OccurredAt: r.OccurredAt,
		})
	}
	return out
}
