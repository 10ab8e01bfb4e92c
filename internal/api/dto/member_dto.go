package dto

import (
	"time"

	"github.com/chamatrack/chama-service/internal/domain"
)

// CreateMemberRequest payload for registering a member.
type CreateMemberRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"required"`
}

// SetPaidRequest payload for marking a member paid or unpaid.
type SetPaidRequest struct {
	Paid *bool `json:"paid" validate:"required"`
}

// MemberResponse is the public member shape.
type MemberResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	HasPaid   bool      `json:"has_paid"`
	TotalPaid string    `json:"total_paid"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMemberResponse maps a domain member.
func NewMemberResponse(m *domain.Member) MemberResponse {
	return MemberResponse{
		ID:        m.ID,
		Name:      m.Name,
		Phone:     m.Phone,
		HasPaid:   m.HasPaid,
		TotalPaid: m.TotalPaid.StringFixed(2),
		CreatedAt: m.CreatedAt,
	}
}

// NewMemberList maps a slice of members.
func NewMemberList(members []domain.Member) []MemberResponse {
	out := make([]MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, NewMemberResponse(&members[i]))
	}
	return out
}

// ReminderTargetResponse is one member due a reminder.
type ReminderTargetResponse struct {
	MemberResponse
	DaysSinceRegistered int `json:"days_since_registered"`
}

// ReminderResultResponse is the send outcome for one member.
type ReminderResultResponse struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// ReminderBatchResponse summarizes a reminder run.
type ReminderBatchResponse struct {
	Sent        int                      `json:"sent"`
	Failed      int                      `json:"failed"`
	TotalUnpaid int                      `json:"total_unpaid"`
	Results     []ReminderResultResponse `json:"results"`
}
