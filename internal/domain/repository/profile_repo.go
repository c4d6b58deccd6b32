package repository

import (
	"context"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
)

// ProfileRepository определяет методы для работы с профилями
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
	// Upsert создает профиль или дополняет пустые поля существующего
	Upsert(ctx context.Context, profile *entity.Profile) (*entity.Profile, error)
}

// AdminRepository определяет методы для проверки административного доступа
type AdminRepository interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	Grant(ctx context.Context, userID string) error
}
