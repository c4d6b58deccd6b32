package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/domain/repository"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
)

const (
	attemptOutboxKey           = "attempts:outbox"
	attemptOutboxProcessingKey = "attempts:outbox:processing"
)

// AttemptOutbox - очередь несохраненных попыток на основе Redis списков.
// Новые записи добавляются слева, Claim забирает справа и атомарно кладет в список обработки.
type AttemptOutbox struct {
	client redis.UniversalClient
}

// NewAttemptOutbox создает очередь попыток
func NewAttemptOutbox(client redis.UniversalClient) (*AttemptOutbox, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for AttemptOutbox")
	}
	return &AttemptOutbox{client: client}, nil
}

// Push добавляет попытку в очередь
func (o *AttemptOutbox) Push(ctx context.Context, attempt *entity.Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	return o.client.LPush(ctx, attemptOutboxKey, data).Err()
}

// Claim переносит самую старую попытку в список обработки и возвращает ее
func (o *AttemptOutbox) Claim(ctx context.Context) (*repository.OutboxEntry, error) {
	raw, err := o.client.RPopLPush(ctx, attemptOutboxKey, attemptOutboxProcessingKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	var attempt entity.Attempt
	if err := json.Unmarshal([]byte(raw), &attempt); err != nil {
		// Битую запись повторять бессмысленно
		log.Errorf("[AttemptOutbox] Удалена поврежденная запись: %s", raw)
		_ = o.client.LRem(ctx, attemptOutboxProcessingKey, 1, raw).Err()
		return nil, fmt.Errorf("corrupted outbox entry: %w", err)
	}
	return &repository.OutboxEntry{Attempt: &attempt, Raw: raw}, nil
}

// Ack удаляет запись из списка обработки
func (o *AttemptOutbox) Ack(ctx context.Context, entry *repository.OutboxEntry) error {
	return o.client.LRem(ctx, attemptOutboxProcessingKey, 1, entry.Raw).Err()
}

// Release возвращает запись из обработки в очередь, она будет взята первой
func (o *AttemptOutbox) Release(ctx context.Context, entry *repository.OutboxEntry) error {
	pipe := o.client.TxPipeline()
	pipe.LRem(ctx, attemptOutboxProcessingKey, 1, entry.Raw)
	pipe.RPush(ctx, attemptOutboxKey, entry.Raw)
	_, err := pipe.Exec(ctx)
	return err
}

// Requeue возвращает в очередь все записи из списка обработки
func (o *AttemptOutbox) Requeue(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := o.client.RPopLPush(ctx, attemptOutboxProcessingKey, attemptOutboxKey).Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}

// Len возвращает число записей, ожидающих обработки
func (o *AttemptOutbox) Len(ctx context.Context) (int64, error) {
	return o.client.LLen(ctx, attemptOutboxKey).Result()
}
