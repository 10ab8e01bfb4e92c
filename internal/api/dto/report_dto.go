package dto

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/service"
)

const dateLayout = "2006-01-02"

// SummaryResponse mirrors aggregation.Summary.
type SummaryResponse struct {
	TotalMembers         int     `json:"total_members"`
	PaidMembers          int     `json:"paid_members"`
	UnpaidMembers        int     `json:"unpaid_members"`
	TotalCollected       string  `json:"total_collected"`
	ExpectedTotal        string  `json:"expected_total"`
	CollectionPercentage float64 `json:"collection_percentage"`
	PaymentRate          float64 `json:"payment_rate"`
}

// MonthlyResponse mirrors aggregation.MonthlyStats.
type MonthlyResponse struct {
	ThisMonth     string  `json:"this_month"`
	LastMonth     string  `json:"last_month"`
	GrowthPercent float64 `json:"growth_percent"`
}

// BalanceReportResponse is the dashboard report.
type BalanceReportResponse struct {
	Summary        SummaryResponse         `json:"summary"`
	Monthly        MonthlyResponse         `json:"monthly"`
	RecentPayments []RecentPaymentResponse `json:"recent_payments"`
	DueDate        *string                 `json:"due_date"`
	Currency       string                  `json:"currency"`
	GeneratedAt    time.Time               `json:"generated_at"`
}

// NewBalanceReportResponse maps the service report.
func NewBalanceReportResponse(r *service.BalanceReport) BalanceReportResponse {
	return BalanceReportResponse{
		Summary: SummaryResponse{
			TotalMembers:         r.Summary.TotalMembers,
			PaidMembers:          r.Summary.PaidMembers,
			UnpaidMembers:        r.Summary.UnpaidMembers,
			TotalCollected:       r.Summary.TotalCollected.StringFixed(2),
			ExpectedTotal:        r.Summary.ExpectedTotal.StringFixed(2),
			CollectionPercentage: round1(r.Summary.CollectionPercentage),
			PaymentRate:          round1(r.Summary.PaymentRate),
		},
		Monthly: MonthlyResponse{
			ThisMonth:     r.Monthly.ThisMonth.StringFixed(2),
			LastMonth:     r.Monthly.LastMonth.StringFixed(2),
			GrowthPercent: round1(r.Monthly.GrowthPercent),
		},
		RecentPayments: NewRecentPayments(r.Recent),
		DueDate:        formatDate(r.DueDate),
		Currency:       r.Currency,
		GeneratedAt:    r.GeneratedAt,
	}
}

// StatsResponse is the dashboard header.
type StatsResponse struct {
	TotalMembers  int     `json:"total_members"`
	PaidMembers   int     `json:"paid_members"`
	UnpaidMembers int     `json:"unpaid_members"`
	DueDate       *string `json:"due_date"`
}

// NewStatsResponse maps service stats.
func NewStatsResponse(s *service.Stats) StatsResponse {
	return StatsResponse{
		TotalMembers:  s.TotalMembers,
		PaidMembers:   s.PaidMembers,
		UnpaidMembers: s.UnpaidMembers,
		DueDate:       formatDate(s.DueDate),
	}
}

// UpdateSettingsRequest payload; omitted fields are unchanged and an empty
// due_date clears it.
type UpdateSettingsRequest struct {
	DueDate           *string          `json:"due_date"`
	ExpectedPerMember *decimal.Decimal `json:"expected_per_member"`
	Currency          *string          `json:"currency" validate:"omitempty,max=8"`
}

// SettingsResponse is the public settings shape.
type SettingsResponse struct {
	DueDate           *string   `json:"due_date"`
	ExpectedPerMember string    `json:"expected_per_member"`
	Currency          string    `json:"currency"`
	UpdatedAt         time.Time `json:"updated_at,omitempty"`
}

// NewSettingsResponse maps domain settings.
func NewSettingsResponse(s domain.Settings) SettingsResponse {
	return SettingsResponse{
		DueDate:           formatDate(s.DueDate),
		ExpectedPerMember: s.ExpectedPerMember.StringFixed(2),
		Currency:          s.Currency,
		UpdatedAt:         s.UpdatedAt,
	}
}

// ParseDate parses a yyyy-mm-dd date in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, value, loc)
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
