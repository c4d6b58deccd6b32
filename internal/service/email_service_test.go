package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "500.00 INR", FormatMinorUnits(50000, "INR"))
	assert.Equal(t, "0.05 INR", FormatMinorUnits(5, "INR"))
	assert.Equal(t, "0.00 USD", FormatMinorUnits(0, "USD"))
}

func TestResendRetryDelay(t *testing.T) {
	wait, ok := resendRetryDelay(&resend.RateLimitError{RetryAfter: "2"}, 0)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, wait)

	wait, ok = resendRetryDelay(&resend.RateLimitError{RetryAfter: "120"}, 0)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, wait)

	wait, ok = resendRetryDelay(errors.New("temporary failure"), 1)
	require.True(t, ok)
	assert.Equal(t, time.Second, wait)

	_, ok = resendRetryDelay(errors.New("invalid api key"), 0)
	assert.False(t, ok)
}

func TestNewResendEmailService_RequiresConfig(t *testing.T) {
	_, err := NewResendEmailService("", "Quiz <noreply@example.com>")
	assert.Error(t, err)
	_, err = NewResendEmailService("re_key", "")
	assert.Error(t, err)

	assert.NoError(t, (&NoopEmailService{}).SendPaymentReceipt(context.Background(), PaymentReceipt{ToEmail: "a@b.c", OrderID: "order_1"}))
}
