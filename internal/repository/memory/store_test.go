package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/repository"
)

func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func seed(t *testing.T, s *Store, names ...string) []domain.Member {
	t.Helper()
	out := make([]domain.Member, 0, len(names))
	for i, name := range names {
		m := &domain.Member{Name: name, Phone: "+25471234567" + string(rune('0'+i))}
		require.NoError(t, s.Members().Create(context.Background(), m))
		out = append(out, *m)
	}
	return out
}

func TestMemberCreateRejectsDuplicatePhone(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Members().Create(ctx, &domain.Member{Name: "Achieng", Phone: "+254712345678"}))
	err := s.Members().Create(ctx, &domain.Member{Name: "Baraka", Phone: "+254712345678"})
	assert.ErrorIs(t, err, repository.ErrDuplicatePhone)

	all, err := s.Members().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemberSearchIsCaseInsensitiveAndSortedByName(t *testing.T) {
	s := NewStore().WithClock(steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	seed(t, s, "Wanjiru", "jane", "Janet", "Otieno")

	got, err := s.Members().Search(context.Background(), "JAN")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "jane", got[0].Name)
	assert.Equal(t, "Janet", got[1].Name)

	all, err := s.Members().Search(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestMemberListNewestFirstWithTotals(t *testing.T) {
	s := NewStore().WithClock(steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	members := seed(t, s, "First", "Second")
	ctx := context.Background()

	require.NoError(t, s.Payments().Create(ctx, &domain.Payment{MemberID: members[0].ID, Amount: decimal.NewFromInt(600)}))
	require.NoError(t, s.Payments().Create(ctx, &domain.Payment{MemberID: members[0].ID, Amount: decimal.NewFromInt(400)}))

	got, err := s.Members().List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Second", got[0].Name)
	assert.True(t, got[0].TotalPaid.IsZero())
	assert.True(t, got[1].TotalPaid.Equal(decimal.NewFromInt(1000)))
}

func TestDeleteRefusesMembersWithPayments(t *testing.T) {
	s := NewStore()
	members := seed(t, s, "Paid", "Fresh")
	ctx := context.Background()
	require.NoError(t, s.Payments().Create(ctx, &domain.Payment{MemberID: members[0].ID, Amount: decimal.NewFromInt(1)}))

	assert.ErrorIs(t, s.Members().Delete(ctx, members[0].ID), repository.ErrHasPayments)
	assert.NoError(t, s.Members().Delete(ctx, members[1].ID))
	assert.ErrorIs(t, s.Members().Delete(ctx, members[1].ID), repository.ErrNotFound)
}

func TestPaymentsKeepInsertionOrderAndFilter(t *testing.T) {
	s := NewStore()
	members := seed(t, s, "A", "B")
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, at := range []time.Time{base.Add(3 * time.Hour), base.Add(time.Hour), base.Add(2 * time.Hour)} {
		p := &domain.Payment{MemberID: members[i%2].ID, Amount: decimal.NewFromInt(100), OccurredAt: at}
		require.NoError(t, s.Payments().Create(ctx, p))
		assert.Equal(t, int64(i+1), p.Seq)
	}

	all, err := s.Payments().List(ctx, repository.PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, base.Add(3*time.Hour), all[0].OccurredAt)

	memberID := members[0].ID
	mine, err := s.Payments().List(ctx, repository.PaymentFilter{MemberID: &memberID})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	from := base.Add(90 * time.Minute)
	late, err := s.Payments().List(ctx, repository.PaymentFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, late, 2)

	count, err := s.Payments().CountByMember(ctx, memberID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := NewStore()
	members := seed(t, s, "A")
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Payments().Create(ctx, &domain.Payment{MemberID: members[0].ID, Amount: decimal.NewFromInt(1000)}))
		require.NoError(t, s.Members().SetPaid(ctx, members[0].ID, true))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	payments, err := s.Payments().List(ctx, repository.PaymentFilter{})
	require.NoError(t, err)
	assert.Empty(t, payments)

	m, err := s.Members().GetByID(ctx, members[0].ID)
	require.NoError(t, err)
	assert.False(t, m.HasPaid)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Settings().Get(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	due := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Settings().Upsert(ctx, &domain.Settings{DueDate: &due, ExpectedPerMember: decimal.NewFromInt(1500), Currency: "KSh"}))

	got, err := s.Settings().Get(ctx)
	require.NoError(t, err)
	assert.True(t, got.ExpectedPerMember.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, due, *got.DueDate)
}
