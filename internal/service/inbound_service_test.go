package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/repository"
	apperrors "github.com/chamatrack/chama-service/pkg/util/errorutil"
)

type memoryDeduper struct {
	seen map[string]bool
	err  error
}

func (d *memoryDeduper) CheckAndMark(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen[id] {
		return true, nil
	}
	d.seen[id] = true
	return false, nil
}

func (d *memoryDeduper) Delete(_ context.Context, id string) error {
	delete(d.seen, id)
	return nil
}

func newInbound(f *fixture, dedupe MessageDeduper) *InboundService {
	return NewInboundService(InboundDependencies{
		MemberRepo: f.store.Members(),
		Payments:   f.payments,
		Settings:   f.settings,
		Dedupe:     dedupe,
	})
}

func TestInboundConfirmationRecordsPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.register(t, "Achieng", "+254712345678")
	svc := newInbound(f, nil)

	reply, err := svc.Handle(ctx, InboundMessage{From: "whatsapp:+254712345678", Body: " Paid ", MessageID: "SM1"})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentConfirmPayment, reply.Intent)
	assert.Equal(t, "Thank you Achieng! Your payment has been recorded. You're all set!", reply.Text)
	assert.NotEmpty(t, reply.PaymentID)

	ledger, err := f.store.Payments().List(ctx, repository.PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.True(t, ledger[0].Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, domain.PaymentSourceWhatsApp, ledger[0].Source)
	require.NotNil(t, ledger[0].Reference)
	assert.Equal(t, "SM1", *ledger[0].Reference)

	member, err := f.members.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, member.HasPaid)

	text, err := svc.HandleMessage(ctx, "whatsapp:+254712345678", "yes")
	require.NoError(t, err)
	assert.Equal(t, "Hi Achieng! Our records show you've already paid. Thank you!", text)

	ledger, err = f.store.Payments().List(ctx, repository.PaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, ledger, 1)
}

func TestInboundStatusAndHelp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "Baraka", "+254712345678")
	svc := newInbound(f, nil)

	cases := []struct {
		body string
		want string
	}{
		{"STATUS", "Hi Baraka! You still have a pending payment. Reply 'PAID' when you've made your contribution."},
		{"check", "Hi Baraka! You still have a pending payment. Reply 'PAID' when you've made your contribution."},
		{"habari", "Hi Baraka! Reply 'PAID' if you've made your payment, or 'STATUS' to check your payment status."},
	}
	for _, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			text, err := svc.HandleMessage(ctx, "+254712345678", tc.body)
			require.NoError(t, err)
			assert.Equal(t, tc.want, text)
		})
	}
}

func TestInboundUnknownSender(t *testing.T) {
	f := newFixture(t)
	svc := newInbound(f, nil)

	for _, from := range []string{"whatsapp:+254700000000", "whatsapp:+14155550100", ""} {
		text, err := svc.HandleMessage(context.Background(), from, "paid")
		require.NoError(t, err)
		assert.Equal(t, ReplyUnregistered, text)
	}
}

func TestInboundDuplicateDeliveryIsNotReprocessed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "Achieng", "+254712345678")
	dedupe := &memoryDeduper{seen: map[string]bool{}}
	svc := newInbound(f, dedupe)

	msg := InboundMessage{From: "whatsapp:+254712345678", Body: "paid", MessageID: "SM42"}
	_, err := svc.Handle(ctx, msg)
	require.NoError(t, err)

	_, err = f.members.ResetCycle(ctx)
	require.NoError(t, err)

	replay, err := svc.Handle(ctx, msg)
	require.NoError(t, err)
	assert.True(t, replay.Duplicate)
	assert.Empty(t, replay.PaymentID)

	ledger, err := f.store.Payments().List(ctx, repository.PaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, ledger, 1)
}

func TestInboundDedupeOutageFailsOpen(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Achieng", "+254712345678")
	svc := newInbound(f, &memoryDeduper{seen: map[string]bool{}, err: errors.New("redis down")})

	reply, err := svc.Handle(context.Background(), InboundMessage{From: "+254712345678", Body: "paid", MessageID: "SM1"})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.PaymentID)
}

func TestInboundRecordingFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Achieng", "+254712345678")
	zero := decimal.Zero
	_, err := f.settings.Update(context.Background(), UpdateSettingsInput{ExpectedPerMember: &zero})
	require.NoError(t, err)

	dedupe := &memoryDeduper{seen: map[string]bool{}}
	svc := newInbound(f, dedupe)
	_, err = svc.Handle(context.Background(), InboundMessage{From: "+254712345678", Body: "paid", MessageID: "SM9"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.False(t, dedupe.seen["SM9"], "failed messages are forgotten")
}
