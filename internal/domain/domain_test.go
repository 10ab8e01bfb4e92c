package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+254712345678", "+254712345678", true},
		{"254712345678", "+254712345678", true},
		{"0712345678", "+254712345678", true},
		{"0112 345 678", "+254112345678", true},
		{"whatsapp:+254712345678", "+254712345678", true},
		{" +254-712-345-678 ", "+254712345678", true},
		{"+254812345678", "", false},
		{"+25471234567", "", false},
		{"+14155238886", "", false},
		{"07123", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizePhone(tc.in)
			if !tc.ok {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				assert.False(t, ValidPhone(tc.in))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyMessage(t *testing.T) {
	cases := map[string]Intent{
		"PAID":        IntentConfirmPayment,
		"  done ":     IntentConfirmPayment,
		"Complete":    IntentConfirmPayment,
		"yes":         IntentConfirmPayment,
		"STATUS":      IntentStatusQuery,
		"check":       IntentStatusQuery,
		"hello":       IntentUnknown,
		"paid please": IntentUnknown,
		"":            IntentUnknown,
	}
	for body, want := range cases {
		assert.Equal(t, want, ClassifyMessage(body), body)
	}
}

func TestCentsConversion(t *testing.T) {
	assert.Equal(t, int64(100000), AmountToCents(decimal.NewFromInt(1000)))
	assert.Equal(t, int64(1235), AmountToCents(decimal.RequireFromString("12.345")))
	assert.True(t, CentsToAmount(150050).Equal(decimal.RequireFromString("1500.50")))
}

func TestAmountInRange(t *testing.T) {
	assert.True(t, AmountInRange(decimal.NewFromInt(1000)))
	assert.True(t, AmountInRange(MaxAmount))
	assert.Equal(t, int64(9223372036854775807), AmountToCents(MaxAmount))
	assert.False(t, AmountInRange(MaxAmount.Add(decimal.RequireFromString("0.01"))))
	assert.False(t, AmountInRange(decimal.RequireFromString("100000000000000000")))
	assert.False(t, AmountInRange(decimal.RequireFromString("-100000000000000000")))
}
