package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yourusername/quiz-reward-api/internal/middleware"
	"github.com/yourusername/quiz-reward-api/internal/service"
)

// PaymentProcessor - двухфазное пополнение кошелька
type PaymentProcessor interface {
	CreateOrder(ctx context.Context, userID string, amount decimal.Decimal) (*service.OrderResult, error)
	VerifyPayment(ctx context.Context, userID, orderID, paymentID, signature string) error
}

// PaymentHandler реализует функции create-order и verify-payment.
// Все ошибки отдаются как 400 {error}, кроме отсутствия аутентификации.
type PaymentHandler struct {
	payments PaymentProcessor
}

// NewPaymentHandler создает обработчик платежей
func NewPaymentHandler(payments PaymentProcessor) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreateOrderRequest - сумма пополнения в основных единицах валюты (рупиях)
type CreateOrderRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// VerifyPaymentRequest - данные, которые виджет шлюза вернул клиенту
type VerifyPaymentRequest struct {
	PaymentID string `json:"paymentId" binding:"required"`
	OrderID   string `json:"orderId" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// CreateOrder открывает заказ в шлюзе
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	order, err := h.payments.CreateOrder(c.Request.Context(), c.GetString(middleware.ContextUserID), req.Amount)
	if err != nil {
		handlePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// VerifyPayment подтверждает оплату по подписи шлюза
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentId, orderId and signature are required"})
		return
	}

	err := h.payments.VerifyPayment(c.Request.Context(), c.GetString(middleware.ContextUserID), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		handlePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
