package repository

import (
	"context"
	"errors"
	"time"

	"github.com/chamatrack/chama-service/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicatePhone is returned when a phone is already registered.
	ErrDuplicatePhone = errors.New("repository: phone already registered")
	// ErrHasPayments is returned when deleting a member that owns ledger entries.
	ErrHasPayments = errors.New("repository: member has payments")
)

// MemberRepository persists the member registry.
type MemberRepository interface {
	Create(ctx context.Context, member *domain.Member) error
	GetByID(ctx context.Context, id string) (*domain.Member, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Member, error)
	// List returns all members newest first with TotalPaid populated.
	List(ctx context.Context) ([]domain.Member, error)
	// Search matches term as a case-insensitive substring of the name, ordered by name.
	Search(ctx context.Context, term string) ([]domain.Member, error)
	SetPaid(ctx context.Context, id string, paid bool) error
	ResetPaid(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

// PaymentFilter narrows ledger reads. Zero values mean no constraint.
type PaymentFilter struct {
	MemberID *string
	From     *time.Time
	To       *time.Time
	Limit    int
}

// PaymentRepository persists the append-only ledger.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	// List returns payments in ledger (insertion) order.
	List(ctx context.Context, filter PaymentFilter) ([]domain.Payment, error)
	CountByMember(ctx context.Context, memberID string) (int, error)
}

// SettingsRepository persists the single collection-cycle settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Upsert(ctx context.Context, settings *domain.Settings) error
}
