package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
)

// PaymentRepo реализует repository.PaymentRepository
type PaymentRepo struct {
	db *gorm.DB
}

// NewPaymentRepo создает новый репозиторий платежей
func NewPaymentRepo(db *gorm.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

// Create сохраняет новый платеж
func (r *PaymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.Status == "" {
		payment.Status = entity.PaymentStatusPending
	}
	err := r.db.WithContext(ctx).Create(payment).Error
	if err != nil && isUniqueViolation(err) {
		return apperrors.ErrConflict
	}
	return err
}

// GetByOrderID возвращает платеж по идентификатору заказа шлюза
func (r *PaymentRepo) GetByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	var payment entity.Payment
	err := r.db.WithContext(ctx).Where("razorpay_order_id = ?", orderID).First(&payment).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

// MarkCompleted переводит pending платеж пользователя в completed одним UPDATE
func (r *PaymentRepo) MarkCompleted(ctx context.Context, orderID, userID, paymentID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.Payment{}).
		Where("razorpay_order_id = ? AND user_id = ? AND status = ?", orderID, userID, entity.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":              entity.PaymentStatusCompleted,
			"razorpay_payment_id": paymentID,
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListPendingBefore возвращает давно висящие pending платежи для сверки
func (r *PaymentRepo) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]entity.Payment, error) {
	var payments []entity.Payment
	query := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", entity.PaymentStatusPending, before).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
