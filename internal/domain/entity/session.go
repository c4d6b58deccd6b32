package entity

import "time"

// Session - активная сессия пользователя, открытая после входа через провайдера
type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Email         string    `json:"email"`
	ProviderToken string    `json:"provider_token,omitempty"` // токен провайдера для отзыва при выходе
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
}

// IdleFor возвращает время бездействия на момент now
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}
