package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Create добавляет попытку в журнал.
// ON CONFLICT DO NOTHING делает повторную отправку из outbox безопасной.
func (r *AttemptRepo) Create(ctx context.Context, attempt *entity.Attempt) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(attempt).Error
}

func (r *AttemptRepo) withQuiz(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("user_quiz_attempts AS a").
		Select("a.*, q.title AS quiz_title, q.reward_amount AS reward_amount").
		Joins("LEFT JOIN quizzes q ON q.id = a.quiz_id")
}

// ListByUser возвращает историю попыток пользователя, последние первыми
func (r *AttemptRepo) ListByUser(ctx context.Context, userID string) ([]entity.AttemptWithQuiz, error) {
	var attempts []entity.AttemptWithQuiz
	err := r.withQuiz(ctx).
		Where("a.user_id = ?", userID).
		Order("a.completed_at DESC").
		Scan(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// SumEarned возвращает баланс кошелька как сумму earned_amount
func (r *AttemptRepo) SumEarned(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.Attempt{}).
		Select("COALESCE(SUM(earned_amount), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// CountByUser возвращает число попыток пользователя
func (r *AttemptRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Attempt{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListAll возвращает все попытки для админ-панели с пагинацией
func (r *AttemptRepo) ListAll(ctx context.Context, limit, offset int) ([]entity.AttemptWithQuiz, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.Attempt{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var attempts []entity.AttemptWithQuiz
	query := r.withQuiz(ctx).Order("a.completed_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Scan(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}
