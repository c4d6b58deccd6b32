package service

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/pkg/metrics"
)

// IdleExpirer закрывает неактивные сессии
type IdleExpirer interface {
	ExpireIdle(ctx context.Context) ([]entity.Session, error)
}

// IdleSubscriber получает уведомление об автоматическом выходе пользователя
type IdleSubscriber func(session entity.Session)

// IdleDetector периодически закрывает сессии без активности и уведомляет подписчиков.
// Активность фиксирует SessionService.Touch, детектор про нее ничего не знает.
type IdleDetector struct {
	expirer  IdleExpirer
	interval time.Duration

	mu          sync.RWMutex
	subscribers []IdleSubscriber
}

// NewIdleDetector создает детектор бездействия
func NewIdleDetector(expirer IdleExpirer, interval time.Duration) *IdleDetector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &IdleDetector{expirer: expirer, interval: interval}
}

// Subscribe регистрирует подписчика
func (d *IdleDetector) Subscribe(fn IdleSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, fn)
}

// Run выполняет проверки, пока не отменен ctx
func (d *IdleDetector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	log.Infof("[IdleDetector] Запуск проверки неактивных сессий (каждые %s)", d.interval)
	for {
		select {
		case <-ticker.C:
			d.Sweep(ctx)
		case <-ctx.Done():
			log.Info("[IdleDetector] Завершение работы")
			return
		}
	}
}

// Sweep выполняет одну проверку и возвращает число закрытых сессий
func (d *IdleDetector) Sweep(ctx context.Context) int {
	expired, err := d.expirer.ExpireIdle(ctx)
	if err != nil {
		log.Errorf("[IdleDetector] Ошибка поиска неактивных сессий: %v", err)
		return 0
	}
	if len(expired) == 0 {
		return 0
	}

	d.mu.RLock()
	subscribers := append([]IdleSubscriber(nil), d.subscribers...)
	d.mu.RUnlock()

	for _, session := range expired {
		metrics.SessionsExpired.Inc()
		for _, notify := range subscribers {
			notify(session)
		}
	}
	log.Infof("[IdleDetector] Закрыто неактивных сессий: %d", len(expired))
	return len(expired)
}
