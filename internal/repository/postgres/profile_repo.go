package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
)

// ProfileRepo реализует repository.ProfileRepository
type ProfileRepo struct {
	db *gorm.DB
}

// NewProfileRepo создает новый репозиторий профилей
func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetByID возвращает профиль по ID
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	var profile entity.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

// Upsert создает профиль или дополняет пустые поля существующего.
// Заполненные поля существующей записи не перезаписываются.
// ErrConflict означает коллизию реферального кода.
func (r *ProfileRepo) Upsert(ctx context.Context, profile *entity.Profile) (*entity.Profile, error) {
	existing, err := r.GetByID(ctx, profile.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		created := *profile
		createErr := r.db.WithContext(ctx).Create(&created).Error
		if createErr == nil {
			return &created, nil
		}
		if !isUniqueViolation(createErr) {
			return nil, createErr
		}
		// Параллельный вход создал профиль раньше нас, дополняем его
		existing, err = r.GetByID(ctx, profile.ID)
		if errors.Is(err, apperrors.ErrNotFound) {
			// Профиля нет, значит конфликт по referral_code
			return nil, apperrors.ErrConflict
		}
	}
	if err != nil {
		return nil, err
	}

	if !existing.MergeMissing(profile) {
		return existing, nil
	}

	err = r.db.WithContext(ctx).Model(&entity.Profile{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"email":         existing.Email,
			"name":          existing.Name,
			"referral_code": existing.ReferralCode,
		}).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrConflict
		}
		return nil, err
	}
	return existing, nil
}
