package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/events"
	"github.com/chamatrack/chama-service/internal/repository"
	apperrors "github.com/chamatrack/chama-service/pkg/util/errorutil"
)

const maxNameLength = 120

// MemberService owns the member registry.
type MemberService struct {
	members    repository.MemberRepository
	payments   repository.PaymentRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// MemberDependencies bundles repositories for member service.
type MemberDependencies struct {
	MemberRepo  repository.MemberRepository
	PaymentRepo repository.PaymentRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewMemberService constructs the service.
func NewMemberService(deps MemberDependencies) *MemberService {
	return &MemberService{
		members:    deps.MemberRepo,
		payments:   deps.PaymentRepo,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
	}
}

// Register adds an unpaid member after validating the name and phone.
func (s *MemberService) Register(ctx context.Context, name, phone string) (*domain.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, apperrors.NewValidationError("name is too long", map[string]any{"field": "name", "max": maxNameLength})
	}
	normalized, err := domain.NormalizePhone(phone)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "phone"})
	}

	member := &domain.Member{Name: name, Phone: normalized, HasPaid: false}
	if err := s.members.Create(ctx, member); err != nil {
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return nil, apperrors.NewConflict("phone number already registered", map[string]any{"phone": normalized})
		}
		return nil, storeError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventMemberRegistered,
		MemberID: member.ID,
		Payload:  events.MemberRegisteredPayload{Name: member.Name, Phone: member.Phone},
	})
	return member, nil
}

// SetPaid sets the member's paid flag. Setting the current value again is a no-op.
func (s *MemberService) SetPaid(ctx context.Context, memberID string, paid bool) (*domain.Member, error) {
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, memberLookupError(err, memberID)
	}
	if member.HasPaid == paid {
		return member, nil
	}

	if err := s.members.SetPaid(ctx, memberID, paid); err != nil {
		return nil, memberLookupError(err, memberID)
	}
	old := member.HasPaid
	member.HasPaid = paid

	s.publish(ctx, events.Event{
		Type:     events.EventMemberStatusChanged,
		MemberID: memberID,
		Payload:  events.MemberStatusChangedPayload{OldPaid: old, NewPaid: paid},
	})
	return member, nil
}

// Search returns members whose name contains term, ignoring case, ordered by name.
func (s *MemberService) Search(ctx context.Context, term string) ([]domain.Member, error) {
	members, err := s.members.Search(ctx, term)
	if err != nil {
		return nil, storeError(err)
	}
	sort.SliceStable(members, func(i, j int) bool {
		return strings.ToLower(members[i].Name) < strings.ToLower(members[j].Name)
	})
	return members, nil
}

// List returns all members newest first with their ledger totals.
func (s *MemberService) List(ctx context.Context) ([]domain.Member, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return members, nil
}

// Get returns one member.
func (s *MemberService) Get(ctx context.Context, memberID string) (*domain.Member, error) {
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, memberLookupError(err, memberID)
	}
	return member, nil
}

// History returns the member's payments newest first.
func (s *MemberService) History(ctx context.Context, memberID string) ([]domain.Payment, error) {
	if _, err := s.Get(ctx, memberID); err != nil {
		return nil, err
	}
	payments, err := s.payments.List(ctx, repository.PaymentFilter{MemberID: &memberID})
	if err != nil {
		return nil, storeError(err)
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].OccurredAt.After(payments[j].OccurredAt)
	})
	return payments, nil
}

// Delete removes a member that has no ledger entries.
func (s *MemberService) Delete(ctx context.Context, memberID string) error {
	count, err := s.payments.CountByMember(ctx, memberID)
	if err != nil {
		return storeError(err)
	}
	if count > 0 {
		return apperrors.NewConflict("member has recorded payments and cannot be deleted",
			map[string]any{"member_id": memberID, "payments": count})
	}
	if err := s.members.Delete(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrHasPayments) {
			return apperrors.NewConflict("member has recorded payments and cannot be deleted",
				map[string]any{"member_id": memberID})
		}
		return memberLookupError(err, memberID)
	}
	return nil
}

// ResetCycle marks every member unpaid. The ledger is untouched.
func (s *MemberService) ResetCycle(ctx context.Context) (int64, error) {
	n, err := s.members.ResetPaid(ctx)
	if err != nil {
		return 0, storeError(err)
	}
	s.publish(ctx, events.Event{Type: events.EventCycleReset, Payload: events.CycleResetPayload{MembersReset: n}})
	return n, nil
}

func (s *MemberService) publish(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.logger, event)
}
