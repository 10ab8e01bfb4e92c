package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chamatrack/chama-service/internal/aggregation"
	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/repository"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
	csvRecentLimit     = 20
)

// ReportService loads the registry, ledger and settings and runs the
// aggregation engine over them.
type ReportService struct {
	members  repository.MemberRepository
	payments repository.PaymentRepository
	settings *SettingsService
	location *time.Location
	now      Clock
}

// ReportDependencies bundles collaborators for report service.
type ReportDependencies struct {
	MemberRepo  repository.MemberRepository
	PaymentRepo repository.PaymentRepository
	Settings    *SettingsService
	Location    *time.Location
	Now         Clock
}

// BalanceReport is the full dashboard view.
type BalanceReport struct {
	Summary     aggregation.Summary
	Monthly     aggregation.MonthlyStats
	Recent      []aggregation.RecentPayment
	DueDate     *time.Time
	Currency    string
	GeneratedAt time.Time
}

// Stats is the lightweight dashboard header.
type Stats struct {
	TotalMembers  int
	PaidMembers   int
	UnpaidMembers int
	DueDate       *time.Time
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		members:  deps.MemberRepo,
		payments: deps.PaymentRepo,
		settings: deps.Settings,
		location: loc,
		now:      clockOrNow(deps.Now),
	}
}

type snapshot struct {
	members  []domain.Member
	ledger   []domain.Payment
	settings domain.Settings
}

func (s *ReportService) load(ctx context.Context, withLedger bool) (*snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		members, err := s.members.List(gctx)
		if err != nil {
			return storeError(err)
		}
		snap.members = members
		return nil
	})
	if withLedger {
		g.Go(func() error {
			ledger, err := s.payments.List(gctx, repository.PaymentFilter{})
			if err != nil {
				return storeError(err)
			}
			snap.ledger = ledger
			return nil
		})
	}
	g.Go(func() error {
		settings, err := s.settings.Get(gctx)
		if err != nil {
			return err
		}
		snap.settings = settings
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Balance builds the balance report with up to recentLimit recent payments.
func (s *ReportService) Balance(ctx context.Context, recentLimit int) (*BalanceReport, error) {
	snap, err := s.load(ctx, true)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &BalanceReport{
		Summary:     aggregation.ComputeSummary(snap.members, snap.ledger, snap.settings),
		Monthly:     aggregation.ComputeMonthlyStats(snap.ledger, now, s.location),
		Recent:      aggregation.RecentPayments(snap.ledger, aggregation.MemberNames(snap.members), clampRecent(recentLimit)),
		DueDate:     snap.settings.DueDate,
		Currency:    snap.settings.Currency,
		GeneratedAt: now.In(s.location),
	}, nil
}

// Stats returns member counts and the due date.
func (s *ReportService) Stats(ctx context.Context) (*Stats, error) {
	snap, err := s.load(ctx, false)
	if err != nil {
		return nil, err
	}
	summary := aggregation.ComputeSummary(snap.members, nil, snap.settings)
	return &Stats{
		TotalMembers:  summary.TotalMembers,
		PaidMembers:   summary.PaidMembers,
		UnpaidMembers: summary.UnpaidMembers,
		DueDate:       snap.settings.DueDate,
	}, nil
}

// RecentPayments returns the n most recent ledger entries.
func (s *ReportService) RecentPayments(ctx context.Context, n int) ([]aggregation.RecentPayment, error) {
	snap, err := s.load(ctx, true)
	if err != nil {
		return nil, err
	}
	return aggregation.RecentPayments(snap.ledger, aggregation.MemberNames(snap.members), clampRecent(n)), nil
}

// WriteBalanceCSV writes one row per member, the summary rows and the latest
// payments.
func (s *ReportService) WriteBalanceCSV(ctx context.Context, w io.Writer) error {
	snap, err := s.load(ctx, true)
	if err != nil {
		return err
	}
	summary := aggregation.ComputeSummary(snap.members, snap.ledger, snap.settings)
	totals := aggregation.MemberTotals(snap.ledger)

	out := csv.NewWriter(w)
	rows := [][]string{{"name", "phone", "status", "total_paid", "registered_at"}}
	for _, m := range snap.members {
		status := "unpaid"
		if m.HasPaid {
			status = "paid"
		}
		rows = append(rows, []string{
			m.Name,
			m.Phone,
			status,
			totals[m.ID].StringFixed(2),
			m.CreatedAt.In(s.location).Format(time.RFC3339),
		})
	}
	rows = append(rows,
		[]string{},
		[]string{"total_members", strconv.Itoa(summary.TotalMembers)},
		[]string{"paid_members", strconv.Itoa(summary.PaidMembers)},
		[]string{"total_collected", summary.TotalCollected.StringFixed(2)},
		[]string{"expected_total", summary.ExpectedTotal.StringFixed(2)},
		[]string{"collection_percentage", strconv.FormatFloat(summary.CollectionPercentage, 'f', 1, 64)},
		[]string{"currency", snap.settings.Currency},
		[]string{},
		[]string{"recent_payment_at", "member", "amount"},
	)
	for _, p := range aggregation.RecentPayments(snap.ledger, aggregation.MemberNames(snap.members), csvRecentLimit) {
		rows = append(rows, []string{
			p.OccurredAt.In(s.location).Format(time.RFC3339),
			p.MemberName,
			p.Amount.StringFixed(2),
		})
	}
	if err := out.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func clampRecent(n int) int {
	switch {
	case n <= 0:
		return defaultRecentLimit
	case n > maxRecentLimit:
		return maxRecentLimit
	default:
		return n
	}
}
