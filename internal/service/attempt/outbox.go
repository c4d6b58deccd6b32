package attempt

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/domain/repository"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
	"github.com/yourusername/quiz-reward-api/internal/pkg/metrics"
)

// outboxSettleTimeout ограничивает Ack и Release, которые выполняются и после отмены контекста воркера
const outboxSettleTimeout = 5 * time.Second

// RetryOutbox повторяет запись попыток, отложенных из-за ошибок БД.
// Запись идемпотентна по ID попытки, поэтому повтор не создает дублей.
func (e *Engine) RetryOutbox(ctx context.Context) (int, error) {
	saved := 0
	defer e.refreshOutboxDepth(ctx)

	for i := 0; i < e.cfg.OutboxBatch; i++ {
		entry, err := e.deps.Outbox.Claim(ctx)
		if errors.Is(err, apperrors.ErrNotFound) {
			break
		}
		if err != nil {
			return saved, err
		}

		if err := e.deps.Attempts.Create(ctx, entry.Attempt); err != nil {
			e.settleOutbox(entry, e.deps.Outbox.Release)
			return saved, err
		}
		e.settleOutbox(entry, e.deps.Outbox.Ack)
		saved++
		log.Infof("[AttemptOutbox] Попытка %s пользователя %s сохранена повторно", entry.Attempt.ID, entry.Attempt.UserID)
	}
	return saved, nil
}

// settleOutbox завершает обработку записи на отдельном контексте.
// Если Redis недоступен, запись остается в списке обработки до Requeue.
func (e *Engine) settleOutbox(entry *repository.OutboxEntry, fn func(context.Context, *repository.OutboxEntry) error) {
	ctx, cancel := context.WithTimeout(context.Background(), outboxSettleTimeout)
	defer cancel()
	if err := fn(ctx, entry); err != nil {
		log.Warnf("[AttemptOutbox] Попытка %s осталась в обработке: %v", entry.Attempt.ID, err)
	}
}

// RecoverOutbox возвращает в очередь записи, взятые в обработку до падения процесса
func (e *Engine) RecoverOutbox(ctx context.Context) {
	n, err := e.deps.Outbox.Requeue(ctx)
	if err != nil {
		log.Warnf("[AttemptOutbox] Не удалось вернуть записи из обработки: %v", err)
		return
	}
	if n > 0 {
		log.Infof("[AttemptOutbox] Возвращено в очередь %d записей после перезапуска", n)
	}
}

func (e *Engine) refreshOutboxDepth(ctx context.Context) {
	depth, err := e.deps.Outbox.Len(ctx)
	if err != nil {
		return
	}
	metrics.OutboxDepth.Set(float64(depth))
}

// RunOutboxWorker периодически разбирает outbox до отмены контекста
func (e *Engine) RunOutboxWorker(ctx context.Context) {
	log.Infof("[AttemptOutbox] Воркер запущен, интервал %s", e.cfg.OutboxRetryInterval)
	e.RecoverOutbox(ctx)
	ticker := time.NewTicker(e.cfg.OutboxRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("[AttemptOutbox] Воркер остановлен")
			return
		case <-ticker.C:
			saved, err := e.RetryOutbox(ctx)
			if err != nil {
				log.Warnf("[AttemptOutbox] Повтор прерван после %d записей: %v", saved, err)
			}
		}
	}
}
