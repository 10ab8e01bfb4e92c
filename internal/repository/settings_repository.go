package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/persistence"
)

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns the Postgres settings store.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	const query = `SELECT due_date, expected_amount_cents, currency, updated_at FROM settings WHERE id=1`
	var (
		settings domain.Settings
		cents    int64
	)
	if err := persistence.QuerierFrom(ctx, r.pool).QueryRow(ctx, query).Scan(
		&settings.DueDate,
		&cents,
		&settings.Currency,
		&settings.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	settings.ExpectedPerMember = domain.CentsToAmount(cents)
	return &settings, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings *domain.Settings) error {
	const query = `
        INSERT INTO settings (id, due_date, expected_amount_cents, currency, updated_at)
        VALUES (1, $1, $2, $3, NOW())
        ON CONFLICT (id) DO UPDATE
            SET due_date=EXCLUDED.due_date,
                expected_amount_cents=EXCLUDED.expected_amount_cents,
                currency=EXCLUDED.currency,
                updated_at=NOW()
        RETURNING updated_at`
	return persistence.QuerierFrom(ctx, r.pool).QueryRow(ctx, query,
		settings.DueDate,
		domain.AmountToCents(settings.ExpectedPerMember),
		settings.Currency,
	).Scan(&settings.UpdatedAt)
}
