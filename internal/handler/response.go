package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
)

// handleError переводит ошибки сервисов в HTTP статусы для маршрутов /api
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized), errors.Is(err, apperrors.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access Denied"})
	case errors.Is(err, apperrors.ErrExternalService):
		log.Warnf("[Handler] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "External service is unavailable"})
	default:
		log.Errorf("[Handler] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// handlePaymentError - контракт платежных функций: любая ошибка кроме аутентификации отдается как 400 {error}
func handlePaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized), errors.Is(err, apperrors.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrInvalidSignature),
		errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrExternalService):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Errorf("[PaymentHandler] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment request failed"})
	}
}

// bindError - ответ на некорректное тело запроса
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
}
