package repository

import (
	"context"
	"time"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
)

// SessionRepository хранит активные сессии. Запись живет, пока пользователь проявляет активность.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*entity.Session, error)
	// Touch продлевает сессию и обновляет LastActivity
	Touch(ctx context.Context, sessionID string, at time.Time, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
	// ListIdle возвращает сессии, у которых LastActivity старше before
	ListIdle(ctx context.Context, before time.Time) ([]entity.Session, error)
}

// OutboxEntry - запись outbox, взятая в обработку. Raw нужен для подтверждения или возврата.
type OutboxEntry struct {
	Attempt *entity.Attempt
	Raw     string
}

// AttemptOutbox - очередь попыток, которые не удалось сохранить с первого раза.
// Взятая запись остается в списке обработки до Ack или Release.
type AttemptOutbox interface {
	Push(ctx context.Context, attempt *entity.Attempt) error
	// Claim берет самую старую запись в обработку. Возвращает ErrNotFound, если очередь пуста.
	Claim(ctx context.Context) (*OutboxEntry, error)
	// Ack удаляет сохраненную запись из списка обработки
	Ack(ctx context.Context, entry *OutboxEntry) error
	// Release возвращает запись в начало очереди
	Release(ctx context.Context, entry *OutboxEntry) error
	// Requeue возвращает в очередь все записи, оставшиеся в обработке после падения процесса
	Requeue(ctx context.Context) (int, error)
	Len(ctx context.Context) (int64, error)
}
