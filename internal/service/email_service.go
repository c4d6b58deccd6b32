package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// PaymentReceipt - данные чека о пополнении кошелька
type PaymentReceipt struct {
	ToEmail   string
	Name      string
	OrderID   string
	PaymentID string
	Amount    int64 // в минимальных единицах валюты
	Currency  string
}

// EmailService sends transactional emails.
type EmailService interface {
	SendPaymentReceipt(ctx context.Context, receipt PaymentReceipt) error
}

// NoopEmailService is used when email delivery is not configured.
type NoopEmailService struct{}

func (s *NoopEmailService) SendPaymentReceipt(ctx context.Context, receipt PaymentReceipt) error {
	log.Debugf("[EmailService] noop payment receipt to=%s order=%s", receipt.ToEmail, receipt.OrderID)
	return nil
}

// ResendEmailService sends emails via Resend REST API.
type ResendEmailService struct {
	from   string
	client *resend.Client
}

func NewResendEmailService(apiKey, from string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

// FormatMinorUnits форматирует сумму в минимальных единицах как "500.00 INR"
func FormatMinorUnits(amount int64, currency string) string {
	return decimal.New(amount, -2).StringFixed(2) + " " + currency
}

func (s *ResendEmailService) SendPaymentReceipt(ctx context.Context, receipt PaymentReceipt) error {
	if receipt.ToEmail == "" || receipt.OrderID == "" {
		return fmt.Errorf("toEmail and orderID are required")
	}

	amount := FormatMinorUnits(receipt.Amount, receipt.Currency)
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{receipt.ToEmail},
		Subject: "Payment received",
		Text: fmt.Sprintf("Hi %s, we received your payment of %s.\nOrder: %s\nPayment: %s",
			receipt.Name, amount, receipt.OrderID, receipt.PaymentID),
		Html: fmt.Sprintf("<p>Hi %s, we received your payment of <strong>%s</strong>.</p><p>Order: %s<br>Payment: %s</p>",
			receipt.Name, amount, receipt.OrderID, receipt.PaymentID),
	}

	// Один чек на заказ даже при повторной верификации
	options := &resend.SendEmailOptions{IdempotencyKey: "receipt-" + receipt.OrderID}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
