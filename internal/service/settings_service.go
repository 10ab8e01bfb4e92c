package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/repository"
	apperrors "github.com/chamatrack/chama-service/pkg/util/errorutil"
)

// SettingsService reads and updates the collection-cycle settings.
type SettingsService struct {
	repo     repository.SettingsRepository
	defaults domain.Settings
}

// UpdateSettingsInput carries optional changes; nil fields are left untouched.
type UpdateSettingsInput struct {
	DueDate           *time.Time
	ClearDueDate      bool
	ExpectedPerMember *decimal.Decimal
	Currency          *string
}

// NewSettingsService constructs the service. defaults apply until settings are stored.
func NewSettingsService(repo repository.SettingsRepository, defaults domain.Settings) *SettingsService {
	return &SettingsService{repo: repo, defaults: defaults}
}

// Get returns stored settings or the configured defaults.
func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.defaults, nil
		}
		return domain.Settings{}, storeError(err)
	}
	return *settings, nil
}

// Update applies input on top of the current settings.
func (s *SettingsService) Update(ctx context.Context, input UpdateSettingsInput) (domain.Settings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	if input.ExpectedPerMember != nil {
		amount := input.ExpectedPerMember.Round(2)
		if amount.IsNegative() {
			return domain.Settings{}, apperrors.NewValidationError("expected amount cannot be negative",
				map[string]any{"field": "expected_per_member"})
		}
		if !domain.AmountInRange(amount) {
			return domain.Settings{}, apperrors.NewValidationError("expected amount is too large",
				map[string]any{"field": "expected_per_member", "max": domain.MaxAmount.String()})
		}
		current.ExpectedPerMember = amount
	}
	if input.Currency != nil {
		currency := strings.TrimSpace(*input.Currency)
		if currency == "" {
			return domain.Settings{}, apperrors.NewValidationError("currency cannot be empty",
				map[string]any{"field": "currency"})
		}
		current.Currency = currency
	}
	switch {
	case input.ClearDueDate:
		current.DueDate = nil
	case input.DueDate != nil:
		due := *input.DueDate
		current.DueDate = &due
	}

	if err := s.repo.Upsert(ctx, &current); err != nil {
		return domain.Settings{}, storeError(err)
	}
	return current, nil
}
