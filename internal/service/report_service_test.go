package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chamatrack/chama-service/pkg/util/errorutil"
)

func TestSettingsDefaultsAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.settings.Get(ctx)
	require.NoError(t, err)
	assert.True(t, got.ExpectedPerMember.Equal(decimal.NewFromInt(1000)))
	assert.Nil(t, got.DueDate)

	due := time.Date(2024, 3, 31, 0, 0, 0, 0, eat)
	amount := decimal.NewFromInt(1500)
	updated, err := f.settings.Update(ctx, UpdateSettingsInput{DueDate: &due, ExpectedPerMember: &amount})
	require.NoError(t, err)
	assert.Equal(t, "KSh", updated.Currency)
	assert.True(t, updated.ExpectedPerMember.Equal(amount))

	stored, err := f.settings.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored.DueDate)
	assert.True(t, stored.DueDate.Equal(due))

	negative := decimal.NewFromInt(-1)
	_, err = f.settings.Update(ctx, UpdateSettingsInput{ExpectedPerMember: &negative})
	assert.True(t, apperrors.IsValidation(err))

	huge := decimal.RequireFromString("100000000000000000")
	_, err = f.settings.Update(ctx, UpdateSettingsInput{ExpectedPerMember: &huge})
	assert.True(t, apperrors.IsValidation(err))

	cleared, err := f.settings.Update(ctx, UpdateSettingsInput{ClearDueDate: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.DueDate)
}

func TestBalanceReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Achieng", "+254712345671")
	f.register(t, "Baraka", "+254712345672")

	_, err := f.payments.RecordPayment(ctx, a.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)

	report, err := f.reports.Balance(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.TotalMembers)
	assert.Equal(t, 1, report.Summary.PaidMembers)
	assert.True(t, report.Summary.ExpectedTotal.Equal(decimal.NewFromInt(2000)))
	assert.InDelta(t, 50.0, report.Summary.CollectionPercentage, 1e-9)
	assert.True(t, report.Monthly.ThisMonth.Equal(decimal.NewFromInt(1000)))
	assert.Zero(t, report.Monthly.GrowthPercent)
	require.Len(t, report.Recent, 1)
	assert.Equal(t, "Achieng", report.Recent[0].MemberName)
	assert.Equal(t, "KSh", report.Currency)

	stats, err := f.reports.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.UnpaidMembers)
}

func TestRecentPaymentsLimitIsClamped(t *testing.T) {
	assert.Equal(t, defaultRecentLimit, clampRecent(0))
	assert.Equal(t, maxRecentLimit, clampRecent(5000))
	assert.Equal(t, 3, clampRecent(3))
}

func TestBalanceCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "Achieng, Jr", "+254712345671")
	f.register(t, "Baraka", "+254712345672")
	_, err := f.payments.RecordPayment(ctx, a.ID, decimal.RequireFromString("1250.5"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.reports.WriteBalanceCSV(ctx, &buf))

	r := csv.NewReader(strings.NewReader(buf.String()))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "phone", "status", "total_paid", "registered_at"}, records[0])
	byName := map[string][]string{}
	for _, rec := range records[1:3] {
		byName[rec[0]] = rec
	}
	assert.Equal(t, "paid", byName["Achieng, Jr"][2])
	assert.Equal(t, "1250.50", byName["Achieng, Jr"][3])
	assert.Equal(t, "0.00", byName["Baraka"][3])
	assert.Contains(t, buf.String(), "total_collected,1250.50")

	var header int
	for i, rec := range records {
		if rec[0] == "recent_payment_at" {
			header = i
		}
	}
	require.NotZero(t, header)
	require.Len(t, records, header+2)
	assert.Equal(t, "Achieng, Jr", records[header+1][1])
	assert.Equal(t, "1250.50", records[header+1][2])
}

func TestBalanceCSVListsAtMostTwentyRecentPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.register(t, "A", "+254712345678")
	for i := 0; i < csvRecentLimit+5; i++ {
		_, err := f.payments.RecordPayment(ctx, m.ID, decimal.NewFromInt(10))
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, f.reports.WriteBalanceCSV(ctx, &buf))
	r := csv.NewReader(strings.NewReader(buf.String()))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	for i, rec := range records {
		if rec[0] == "recent_payment_at" {
			assert.Len(t, records[i+1:], csvRecentLimit)
			return
		}
	}
	t.Fatal("recent payments section missing")
}
