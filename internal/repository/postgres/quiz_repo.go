package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
)

// QuizRepo реализует repository.QuizRepository
type QuizRepo struct {
	db *gorm.DB
}

// NewQuizRepo создает новый репозиторий викторин
func NewQuizRepo(db *gorm.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

// Create создает новую викторину
func (r *QuizRepo) Create(ctx context.Context, quiz *entity.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Omit("Questions").Create(quiz).Error
}

// GetByID возвращает викторину по ID
func (r *QuizRepo) GetByID(ctx context.Context, id string) (*entity.Quiz, error) {
	var quiz entity.Quiz
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&quiz).Error; err != nil {
		return nil, notFound(err)
	}
	return &quiz, nil
}

// GetWithQuestions возвращает викторину вместе с вопросами в порядке создания
func (r *QuizRepo) GetWithQuestions(ctx context.Context, id string) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&quiz).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &quiz, nil
}

// ListActive возвращает активные викторины
func (r *QuizRepo) ListActive(ctx context.Context) ([]entity.Quiz, error) {
	var quizzes []entity.Quiz
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

// ListAll возвращает все викторины, новые первыми
func (r *QuizRepo) ListAll(ctx context.Context) ([]entity.Quiz, error) {
	var quizzes []entity.Quiz
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

// Update обновляет редактируемые поля викторины
func (r *QuizRepo) Update(ctx context.Context, quiz *entity.Quiz) error {
	result := r.db.WithContext(ctx).Model(&entity.Quiz{}).
		Where("id = ?", quiz.ID).
		Updates(map[string]interface{}{
			"title":         quiz.Title,
			"description":   quiz.Description,
			"reward_amount": quiz.RewardAmount,
			"time_limit":    quiz.TimeLimit,
			"category":      quiz.Category,
			"is_active":     quiz.IsActive,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetActive включает или выключает викторину
func (r *QuizRepo) SetActive(ctx context.Context, id string, active bool) error {
	result := r.db.WithContext(ctx).Model(&entity.Quiz{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// IncrementQuestionCount атомарно увеличивает question_count на delta через gorm.Expr
func (r *QuizRepo) IncrementQuestionCount(ctx context.Context, id string, delta int) error {
	return r.db.WithContext(ctx).Model(&entity.Quiz{}).
		Where("id = ?", id).
		Update("question_count", gorm.Expr("question_count + ?", delta)).
		Error
}
