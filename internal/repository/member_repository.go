package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/persistence"
)

const pgUniqueViolation = "23505"

const memberColumns = `m.id, m.name, m.phone, m.has_paid, m.created_at, m.updated_at,
               COALESCE((SELECT SUM(p.amount_cents) FROM payments p WHERE p.member_id = m.id), 0)`

type memberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository returns a Postgres-backed implementation.
func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepository{pool: pool}
}

func (r *memberRepository) db(ctx context.Context) persistence.Querier {
	return persistence.QuerierFrom(ctx, r.pool)
}

func (r *memberRepository) Create(ctx context.Context, member *domain.Member) error {
	const query = `
        INSERT INTO members (name, phone, has_paid)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	err := r.db(ctx).QueryRow(ctx, query,
		member.Name,
		member.Phone,
		member.HasPaid,
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicatePhone
	}
	return err
}

func (r *memberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	return r.fetchSingle(ctx, `SELECT `+memberColumns+` FROM members m WHERE m.id::text=$1`, id)
}

func (r *memberRepository) GetByPhone(ctx context.Context, phone string) (*domain.Member, error) {
	return r.fetchSingle(ctx, `SELECT `+memberColumns+` FROM members m WHERE m.phone=$1`, phone)
}

func (r *memberRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Member, error) {
	var (
		member domain.Member
		cents  int64
	)
	if err := r.db(ctx).QueryRow(ctx, query, arg).Scan(
		&member.ID,
		&member.Name,
		&member.Phone,
		&member.HasPaid,
		&member.CreatedAt,
		&member.UpdatedAt,
		&cents,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	member.TotalPaid = domain.CentsToAmount(cents)
	return &member, nil
}

func (r *memberRepository) List(ctx context.Context) ([]domain.Member, error) {
	rows, err := r.db(ctx).Query(ctx, `SELECT `+memberColumns+` FROM members m ORDER BY m.created_at DESC, m.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *memberRepository) Search(ctx context.Context, term string) ([]domain.Member, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(term)) + "%"
	const query = `SELECT ` + memberColumns + ` FROM members m
        WHERE m.name ILIKE $1 ESCAPE '\'
        ORDER BY lower(m.name) ASC, m.created_at ASC`
	rows, err := r.db(ctx).Query(ctx, query, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *memberRepository) SetPaid(ctx context.Context, id string, paid bool) error {
	const query = `UPDATE members SET has_paid=$1, updated_at=NOW() WHERE id::text=$2`
	cmd, err := r.db(ctx).Exec(ctx, query, paid, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *memberRepository) ResetPaid(ctx context.Context) (int64, error) {
	cmd, err := r.db(ctx).Exec(ctx, `UPDATE members SET has_paid=FALSE, updated_at=NOW() WHERE has_paid`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *memberRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db(ctx).Exec(ctx, `DELETE FROM members WHERE id::text=$1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrHasPayments
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMembers(rows pgx.Rows) ([]domain.Member, error) {
	result := []domain.Member{}
	for rows.Next() {
		var (
			member domain.Member
			cents  int64
		)
		if err := rows.Scan(
			&member.ID,
			&member.Name,
			&member.Phone,
			&member.HasPaid,
			&member.CreatedAt,
			&member.UpdatedAt,
			&cents,
		); err != nil {
			return nil, err
		}
		member.TotalPaid = domain.CentsToAmount(cents)
		result = append(result, member)
	}
	return result, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
