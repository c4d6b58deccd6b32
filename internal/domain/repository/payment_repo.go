package repository

import (
	"context"
	"time"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
)

// PaymentRepository определяет методы для работы с платежами
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*entity.Payment, error)
	// MarkCompleted переводит pending платеж пользователя в completed.
	// Условие совпадения: order id И user id И статус pending. Возвращает число измененных строк.
	MarkCompleted(ctx context.Context, orderID, userID, paymentID string) (int64, error)
	// ListPendingBefore возвращает pending платежи, созданные раньше указанного момента
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]entity.Payment, error)
}
