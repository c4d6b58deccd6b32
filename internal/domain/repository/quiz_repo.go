package repository

import (
	"context"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
)

// QuizRepository определяет методы для работы с викторинами
type QuizRepository interface {
	Create(ctx context.Context, quiz *entity.Quiz) error
	GetByID(ctx context.Context, id string) (*entity.Quiz, error)
	GetWithQuestions(ctx context.Context, id string) (*entity.Quiz, error)
	// ListActive возвращает викторины с is_active = true
	ListActive(ctx context.Context) ([]entity.Quiz, error)
	// ListAll возвращает все викторины, новые первыми
	ListAll(ctx context.Context) ([]entity.Quiz, error)
	Update(ctx context.Context, quiz *entity.Quiz) error
	SetActive(ctx context.Context, id string, active bool) error
	// IncrementQuestionCount атомарно увеличивает question_count на delta
	IncrementQuestionCount(ctx context.Context, id string, delta int) error
}

// QuestionRepository определяет методы для работы с вопросами
type QuestionRepository interface {
	CreateBatch(ctx context.Context, questions []entity.Question) error
	// GetByQuizID возвращает вопросы в порядке создания
	GetByQuizID(ctx context.Context, quizID string) ([]entity.Question, error)
}
