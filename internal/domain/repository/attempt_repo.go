package repository

import (
	"context"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
)

// AttemptRepository - журнал завершенных попыток. Только добавление и чтение.
type AttemptRepository interface {
	// Create сохраняет попытку. Повторная вставка того же ID не создает дубликат.
	Create(ctx context.Context, attempt *entity.Attempt) error
	ListByUser(ctx context.Context, userID string) ([]entity.AttemptWithQuiz, error)
	SumEarned(ctx context.Context, userID string) (int64, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	ListAll(ctx context.Context, limit, offset int) ([]entity.AttemptWithQuiz, int64, error)
}
