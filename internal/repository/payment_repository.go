package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/persistence"
)

type paymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository instantiates the Postgres ledger.
func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	const query = `
        INSERT INTO payments (member_id, amount_cents, source, reference, occurred_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, seq, occurred_at`
	return persistence.QuerierFrom(ctx, r.pool).QueryRow(ctx, query,
		payment.MemberID,
		domain.AmountToCents(payment.Amount),
		payment.Source,
		payment.Reference,
		payment.OccurredAt,
	).Scan(&payment.ID, &payment.Seq, &payment.OccurredAt)
}

func (r *paymentRepository) List(ctx context.Context, filter PaymentFilter) ([]domain.Payment, error) {
	base := `SELECT id, seq, member_id, amount_cents, source, reference, occurred_at FROM payments`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.MemberID != nil {
		args = append(args, *filter.MemberID)
		clauses = append(clauses, fmt.Sprintf("member_id::text=$%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("occurred_at <= $%d", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY seq ASC`, base, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := persistence.QuerierFrom(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (r *paymentRepository) CountByMember(ctx context.Context, memberID string) (int, error) {
	var count int
	err := persistence.QuerierFrom(ctx, r.pool).
		QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE member_id::text=$1`, memberID).
		Scan(&count)
	return count, err
}

func scanPayments(rows pgx.Rows) ([]domain.Payment, error) {
	result := []domain.Payment{}
	for rows.Next() {
		var (
			payment domain.Payment
			cents   int64
		)
		if err := rows.Scan(
			&payment.ID,
			&payment.Seq,
			&payment.MemberID,
			&cents,
			&payment.Source,
			&payment.Reference,
			&payment.OccurredAt,
		); err != nil {
			return nil, err
		}
		payment.Amount = domain.CentsToAmount(cents)
		result = append(result, payment)
	}
	return result, rows.Err()
}
