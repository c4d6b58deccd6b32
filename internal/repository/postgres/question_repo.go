package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// CreateBatch создает несколько вопросов одной вставкой
func (r *QuestionRepo) CreateBatch(ctx context.Context, questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
	}
	return r.db.WithContext(ctx).Create(&questions).Error
}

// GetByQuizID возвращает вопросы викторины в порядке создания
func (r *QuestionRepo) GetByQuizID(ctx context.Context, quizID string) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("created_at ASC, id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}
