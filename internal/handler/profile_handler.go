package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/handler/dto"
	"github.com/yourusername/quiz-reward-api/internal/middleware"
	"github.com/yourusername/quiz-reward-api/internal/service"
)

// ProfileViewer - данные личного кабинета
type ProfileViewer interface {
	GetOverview(ctx context.Context, userID string) (*service.ProfileOverview, error)
	ListAttempts(ctx context.Context, userID string) ([]entity.AttemptWithQuiz, error)
	GetWallet(ctx context.Context, userID string) (service.Wallet, error)
}

// ProfileHandler отдает профиль, историю и кошелек
type ProfileHandler struct {
	profiles ProfileViewer
}

// NewProfileHandler создает обработчик профиля
func NewProfileHandler(profiles ProfileViewer) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Overview возвращает профиль вместе с историей и балансом
func (h *ProfileHandler) Overview(c *gin.Context) {
	overview, err := h.profiles.GetOverview(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOverviewResponse(overview))
}

// Attempts возвращает историю прохождений
func (h *ProfileHandler) Attempts(c *gin.Context) {
	attempts, err := h.profiles.ListAttempts(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAttemptListResponse(attempts))
}

// Wallet возвращает баланс
func (h *ProfileHandler) Wallet(c *gin.Context) {
	wallet, err := h.profiles.GetWallet(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWalletResponse(wallet))
}
