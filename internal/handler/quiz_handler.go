package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/handler/dto"
	"github.com/yourusername/quiz-reward-api/internal/service"
)

// ContextQuizID - ключ, под которым ExtractUUIDParam кладет id викторины
const ContextQuizID = "quiz_id"

// QuizCatalog - операции каталога викторин
type QuizCatalog interface {
	ListActive(ctx context.Context) ([]entity.Quiz, error)
	GetActiveQuiz(ctx context.Context, id string) (*entity.Quiz, error)
	ListAll(ctx context.Context) ([]entity.Quiz, error)
	GetWithQuestions(ctx context.Context, id string) (*entity.Quiz, error)
	CreateQuiz(ctx context.Context, in service.QuizInput) (*entity.Quiz, error)
	UpdateQuiz(ctx context.Context, id string, in service.QuizInput) (*entity.Quiz, error)
	SetActive(ctx context.Context, id string, active bool) (*entity.Quiz, error)
	AddQuestions(ctx context.Context, quizID string, questions []entity.Question) (*entity.Quiz, error)
}

// QuizHandler обрабатывает запросы, связанные с викторинами
type QuizHandler struct {
	quizzes QuizCatalog
}

// NewQuizHandler создает новый обработчик викторин
func NewQuizHandler(quizzes QuizCatalog) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

// ListActive возвращает активные викторины
func (h *QuizHandler) ListActive(c *gin.Context) {
	quizzes, err := h.quizzes.ListActive(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListQuizResponse(quizzes))
}

// GetQuiz возвращает активную викторину без вопросов
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quiz, err := h.quizzes.GetActiveQuiz(c.Request.Context(), c.GetString(ContextQuizID))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz))
}

// AdminList возвращает все викторины, новые первыми
func (h *QuizHandler) AdminList(c *gin.Context) {
	quizzes, err := h.quizzes.ListAll(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListQuizResponse(quizzes))
}

// AdminGet возвращает викторину с вопросами и правильными ответами
func (h *QuizHandler) AdminGet(c *gin.Context) {
	quiz, err := h.quizzes.GetWithQuestions(c.Request.Context(), c.GetString(ContextQuizID))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAdminQuizResponse(quiz))
}

// CreateQuiz обрабатывает запрос на создание викторины
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req dto.QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	quiz, err := h.quizzes.CreateQuiz(c.Request.Context(), req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewQuizResponse(quiz))
}

// UpdateQuiz редактирует викторину
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	var req dto.QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	quiz, err := h.quizzes.UpdateQuiz(c.Request.Context(), c.GetString(ContextQuizID), req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz))
}

// SetActive включает или выключает викторину
func (h *QuizHandler) SetActive(c *gin.Context) {
	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	quiz, err := h.quizzes.SetActive(c.Request.Context(), c.GetString(ContextQuizID), *req.IsActive)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz))
}

// AddQuestions добавляет вопросы к викторине
func (h *QuizHandler) AddQuestions(c *gin.Context) {
	var req dto.AddQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	quizID := c.GetString(ContextQuizID)
	for i, q := range req.Questions {
		if q.CorrectOption >= len(q.Options) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "correct_option is out of range", "question": i})
			return
		}
	}

	quiz, err := h.quizzes.AddQuestions(c.Request.Context(), quizID, req.ToEntities(quizID))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz))
}
