package repository

import (
	"context"
	"time"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	// DeleteIfValue удаляет ключ только если он хранит value (освобождение чужой блокировки невозможно)
	DeleteIfValue(ctx context.Context, key, value string) (bool, error)
}
