package entity

import (
	"time"
)

// Статусы платежа
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Payment - пополнение кошелька через платежный шлюз
type Payment struct {
	ID                string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount            int64     `gorm:"not null" json:"amount"` // в минимальных единицах валюты (пайсы)
	RazorpayOrderID   string    `gorm:"size:64;not null;uniqueIndex" json:"razorpay_order_id"`
	RazorpayPaymentID *string   `gorm:"size:64" json:"razorpay_payment_id,omitempty"`
	Status            string    `gorm:"size:20;not null;default:'pending';index" json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Payment) TableName() string {
	return "payments"
}

// IsCompleted проверяет, подтвержден ли платеж
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}
