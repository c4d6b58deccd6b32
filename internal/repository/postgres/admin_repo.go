package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
)

// AdminRepo реализует repository.AdminRepository
type AdminRepo struct {
	db *gorm.DB
}

// NewAdminRepo создает новый репозиторий администраторов
func NewAdminRepo(db *gorm.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

// IsAdmin проверяет наличие пользователя в admin_users
func (r *AdminRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.AdminUser{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Grant выдает права администратора. Повторная выдача не считается ошибкой.
func (r *AdminRepo) Grant(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Create(&entity.AdminUser{UserID: userID}).Error
	if err != nil && isUniqueViolation(err) {
		return nil
	}
	return err
}
