package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/domain/repository"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
	"github.com/yourusername/quiz-reward-api/internal/pkg/metrics"
	"github.com/yourusername/quiz-reward-api/pkg/razorpay"
)

// maxOrderAmount - верхняя граница одного пополнения в основных единицах валюты
var maxOrderAmount = decimal.NewFromInt(1_000_000)

var hundred = decimal.NewFromInt(100)

// PaymentGateway - внешний платежный шлюз
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// OrderResult - ответ клиенту при создании заказа
type OrderResult struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"` // в минимальных единицах, как ожидает виджет шлюза
	Currency string `json:"currency"`
}

// ReconcileReport - состояние зависшего pending платежа по данным шлюза
type ReconcileReport struct {
	Payment      entity.Payment
	GatewayState string
	Err          error
}

// PaymentService реализует двухфазное пополнение кошелька через шлюз
type PaymentService struct {
	paymentRepo  repository.PaymentRepository
	profileRepo  repository.ProfileRepository
	gateway      PaymentGateway
	emailService EmailService
	currency     string
	now          func() time.Time
	runAsync     func(func())
}

// NewPaymentService создает сервис платежей
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	profileRepo repository.ProfileRepository,
	gateway PaymentGateway,
	emailService EmailService,
	currency string,
) *PaymentService {
	if emailService == nil {
		emailService = &NoopEmailService{}
	}
	if currency == "" {
		currency = "INR"
	}
	return &PaymentService{
		paymentRepo:  paymentRepo,
		profileRepo:  profileRepo,
		gateway:      gateway,
		emailService: emailService,
		currency:     currency,
		now:          time.Now,
		runAsync:     func(fn func()) { go fn() },
	}
}

// ToMinorUnits переводит положительную сумму в минимальные единицы (рупии -> пайсы)
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	if amount.GreaterThan(maxOrderAmount) {
		return 0, fmt.Errorf("%w: amount must not exceed %s", apperrors.ErrValidation, maxOrderAmount.String())
	}
	minor := amount.Mul(hundred)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount must have at most two decimal places", apperrors.ErrValidation)
	}
	return minor.IntPart(), nil
}

// CreateOrder открывает заказ в шлюзе и сохраняет pending платеж.
// Некорректная сумма отклоняется до обращения к шлюзу.
func (s *PaymentService) CreateOrder(ctx context.Context, userID string, amount decimal.Decimal) (*OrderResult, error) {
	minor, err := ToMinorUnits(amount)
	if err != nil {
		metrics.Payments.WithLabelValues("create_order", "invalid").Inc()
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   minor,
		Currency: s.currency,
		Receipt:  fmt.Sprintf("order_%d", s.now().UnixMilli()),
	})
	if err != nil {
		metrics.Payments.WithLabelValues("create_order", "gateway_error").Inc()
		log.Errorf("[PaymentService] Шлюз не создал заказ для пользователя %s: %v", userID, err)
		return nil, fmt.Errorf("%w: failed to create gateway order: %v", apperrors.ErrExternalService, err)
	}

	payment := &entity.Payment{
		UserID:          userID,
		Amount:          minor,
		RazorpayOrderID: order.ID,
		Status:          entity.PaymentStatusPending,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		metrics.Payments.WithLabelValues("create_order", "store_error").Inc()
		// Заказ в шлюзе уже открыт, без строки в БД его подтверждение будет отклонено
		log.Errorf("[PaymentService] Заказ %s открыт в шлюзе, но не сохранен: %v", order.ID, err)
		return nil, fmt.Errorf("%w: failed to store payment: %v", apperrors.ErrExternalService, err)
	}

	metrics.Payments.WithLabelValues("create_order", "ok").Inc()
	log.WithFields(log.Fields{"user_id": userID, "order_id": order.ID, "amount": minor}).Info("[PaymentService] Заказ создан")

	currency := order.Currency
	if currency == "" {
		currency = s.currency
	}
	return &OrderResult{OrderID: order.ID, Amount: minor, Currency: currency}, nil
}

// VerifyPayment проверяет подпись подтверждения и переводит платеж в completed.
// При неверной подписи ни одна строка не меняется.
func (s *PaymentService) VerifyPayment(ctx context.Context, userID, orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return fmt.Errorf("%w: orderId, paymentId and signature are required", apperrors.ErrValidation)
	}

	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		metrics.Payments.WithLabelValues("verify", "invalid_signature").Inc()
		log.WithFields(log.Fields{"user_id": userID, "order_id": orderID}).Warn("[PaymentService] Неверная подпись платежа")
		return apperrors.ErrInvalidSignature
	}

	updated, err := s.paymentRepo.MarkCompleted(ctx, orderID, userID, paymentID)
	if err != nil {
		metrics.Payments.WithLabelValues("verify", "store_error").Inc()
		return fmt.Errorf("%w: failed to update payment: %v", apperrors.ErrExternalService, err)
	}

	if updated == 0 {
		payment, err := s.paymentRepo.GetByOrderID(ctx, orderID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("%w: payment not found", apperrors.ErrNotFound)
			}
			return err
		}
		// Чужой заказ неотличим от несуществующего
		if payment.UserID != userID {
			return fmt.Errorf("%w: payment not found", apperrors.ErrNotFound)
		}
		if payment.IsCompleted() && payment.RazorpayPaymentID != nil && *payment.RazorpayPaymentID == paymentID {
			metrics.Payments.WithLabelValues("verify", "duplicate").Inc()
			return nil
		}
		return fmt.Errorf("%w: payment is already completed", apperrors.ErrConflict)
	}

	metrics.Payments.WithLabelValues("verify", "ok").Inc()
	log.WithFields(log.Fields{"user_id": userID, "order_id": orderID, "payment_id": paymentID}).Info("[PaymentService] Платеж подтвержден")

	s.runAsync(func() { s.sendReceipt(userID, orderID, paymentID) })
	return nil
}

func (s *PaymentService) sendReceipt(userID, orderID, paymentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	payment, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		log.Warnf("[PaymentService] Чек не отправлен, заказ %s не прочитан: %v", orderID, err)
		return
	}
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		log.Warnf("[PaymentService] Чек не отправлен, профиль %s не прочитан: %v", userID, err)
		return
	}
	err = s.emailService.SendPaymentReceipt(ctx, PaymentReceipt{
		ToEmail:   profile.Email,
		Name:      profile.Name,
		OrderID:   orderID,
		PaymentID: paymentID,
		Amount:    payment.Amount,
		Currency:  s.currency,
	})
	if err != nil {
		log.Warnf("[PaymentService] Не удалось отправить чек по заказу %s: %v", orderID, err)
	}
}

// ReconcilePending сверяет давно висящие pending платежи со шлюзом. Ничего не изменяет.
func (s *PaymentService) ReconcilePending(ctx context.Context, olderThan time.Duration, limit int) ([]ReconcileReport, error) {
	payments, err := s.paymentRepo.ListPendingBefore(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}
	reports := make([]ReconcileReport, 0, len(payments))
	for _, p := range payments {
		report := ReconcileReport{Payment: p}
		order, err := s.gateway.FetchOrder(ctx, p.RazorpayOrderID)
		if err != nil {
			report.Err = err
		} else {
			report.GatewayState = order.Status
		}
		reports = append(reports, report)
	}
	return reports, nil
}
