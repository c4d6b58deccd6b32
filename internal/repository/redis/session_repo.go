package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
)

const (
	sessionKeyPrefix   = "session:"
	sessionActivityKey = "sessions:activity" // ZSET: member = session id, score = unix время последней активности
)

// SessionRepo хранит сессии в Redis. Ключ сессии живет ttl с момента последней активности.
type SessionRepo struct {
	client redis.UniversalClient
}

// NewSessionRepo создает новый репозиторий сессий
func NewSessionRepo(client redis.UniversalClient) (*SessionRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for SessionRepo")
	}
	return &SessionRepo{client: client}, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Create сохраняет новую сессию
func (r *SessionRepo) Create(ctx context.Context, session *entity.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), data, ttl)
	pipe.ZAdd(ctx, sessionActivityKey, &redis.Z{Score: float64(session.LastActivity.Unix()), Member: session.ID})
	_, err = pipe.Exec(ctx)
	return err
}

// Get возвращает сессию или ErrNotFound, если она истекла или удалена
func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*entity.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	var session entity.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Touch обновляет LastActivity и продлевает TTL сессии.
// Ключ перезаписывается только если он еще существует: удаленная сессия не восстанавливается.
func (r *SessionRepo) Touch(ctx context.Context, sessionID string, at time.Time, ttl time.Duration) error {
	session, err := r.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	session.LastActivity = at
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	updated := pipe.SetXX(ctx, sessionKey(sessionID), data, ttl)
	pipe.ZAddXX(ctx, sessionActivityKey, &redis.Z{Score: float64(at.Unix()), Member: sessionID})
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if !updated.Val() {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete удаляет сессию. Удаление несуществующей сессии не является ошибкой.
func (r *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.ZRem(ctx, sessionActivityKey, sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// ListIdle возвращает сессии, неактивные с момента before.
// Сессии, чей ключ уже истек, тоже возвращаются (только с ID), чтобы подписчики узнали о выходе.
func (r *SessionRepo) ListIdle(ctx context.Context, before time.Time) ([]entity.Session, error) {
	ids, err := r.client.ZRangeByScore(ctx, sessionActivityKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(before.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]entity.Session, 0, len(ids))
	for _, id := range ids {
		session, err := r.Get(ctx, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			sessions = append(sessions, entity.Session{ID: id})
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}
