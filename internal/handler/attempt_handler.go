package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quiz-reward-api/internal/middleware"
	"github.com/yourusername/quiz-reward-api/internal/service/attempt"
)

// AttemptEngine - операции движка прохождений
type AttemptEngine interface {
	Start(ctx context.Context, userID, quizID string) (*attempt.QuestionView, error)
	Submit(ctx context.Context, userID, questionID, optionID string) (*attempt.AnswerResult, error)
	State(ctx context.Context, userID string) *attempt.Snapshot
	Abandon(ctx context.Context, userID string) error
}

// AttemptHandler - HTTP доступ к прохождению. События идут также через WebSocket.
type AttemptHandler struct {
	engine AttemptEngine
}

// NewAttemptHandler создает обработчик прохождений
func NewAttemptHandler(engine AttemptEngine) *AttemptHandler {
	return &AttemptHandler{engine: engine}
}

// StartRequest - начало прохождения
type StartRequest struct {
	QuizID string `json:"quiz_id" binding:"required,uuid"`
}

// AnswerRequest - ответ на текущий вопрос. question_id защищает от ответа на уже закрытый вопрос.
type AnswerRequest struct {
	QuestionID string `json:"question_id" binding:"omitempty,uuid"`
	OptionID   string `json:"option_id" binding:"required"`
}

// Start начинает прохождение и возвращает первый вопрос
func (h *AttemptHandler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	view, err := h.engine.Start(c.Request.Context(), c.GetString(middleware.ContextUserID), req.QuizID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Answer принимает ответ
func (h *AttemptHandler) Answer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.engine.Submit(c.Request.Context(), c.GetString(middleware.ContextUserID), req.QuestionID, req.OptionID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Current возвращает состояние пользователя
func (h *AttemptHandler) Current(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.State(c.Request.Context(), c.GetString(middleware.ContextUserID)))
}

// Abandon прерывает прохождение без сохранения
func (h *AttemptHandler) Abandon(c *gin.Context) {
	if err := h.engine.Abandon(c.Request.Context(), c.GetString(middleware.ContextUserID)); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": attempt.StatusBrowsing})
}
