package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorKeepsWrappedDomainError(t *testing.T) {
	base := NewConflict("phone already registered", map[string]any{"phone": "+254712345678"})
	wrapped := fmt.Errorf("register: %w", base)

	got := ToDomainError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, CodeConflict, got.Code)
	assert.Equal(t, http.StatusConflict, got.HTTPStatus)
	assert.True(t, IsConflict(wrapped))
}

func TestToDomainErrorFallsBackToInternal(t *testing.T) {
	got := ToDomainError(errors.New("boom"))
	require.NotNil(t, got)
	assert.Equal(t, CodeInternal, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))
}

func TestPartialFailureIsDistinguishable(t *testing.T) {
	cause := errors.New("update failed")
	err := NewPartialFailure("pay-1", "mem-1", cause)

	assert.True(t, IsPartialFailure(err))
	assert.False(t, IsStore(err))
	assert.ErrorIs(t, err, cause)

	domainErr := ToDomainError(err)
	assert.Equal(t, "pay-1", domainErr.Details["payment_id"])
	assert.Equal(t, "mem-1", domainErr.Details["member_id"])
}

func TestKindPredicates(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", NewValidationError("bad", nil), IsValidation},
		{"not found", NewNotFound("member", nil), IsNotFound},
		{"store", NewStoreError(errors.New("down")), IsStore},
		{"channel", NewChannelError(errors.New("rejected")), IsChannel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.check(tc.err))
			assert.False(t, IsConflict(tc.err))
		})
	}
}
