package entity

import (
	"time"
)

// Attempt - завершенное прохождение викторины.
// Запись неизменяема: баланс кошелька всегда считается как сумма EarnedAmount.
type Attempt struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string    `gorm:"type:uuid;not null;index" json:"user_id"`
	QuizID         string    `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Score          float64   `gorm:"not null;default:0" json:"score"`
	EarnedAmount   int64     `gorm:"not null;default:0" json:"earned_amount"`
	TotalQuestions int       `gorm:"not null" json:"total_questions"`
	CorrectAnswers int       `gorm:"not null" json:"correct_answers"`
	CompletedAt    time.Time `gorm:"not null" json:"completed_at"`
}

// TableName определяет имя таблицы для GORM
func (Attempt) TableName() string {
	return "user_quiz_attempts"
}

// AttemptWithQuiz - попытка вместе с данными викторины для истории профиля
type AttemptWithQuiz struct {
	Attempt
	QuizTitle    string `json:"quiz_title"`
	RewardAmount int64  `json:"reward_amount"`
}
