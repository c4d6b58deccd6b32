package entity

import (
	"time"
)

// Quiz представляет викторину с денежным вознаграждением
type Quiz struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string     `gorm:"size:100;not null" json:"title"`
	Description   string     `gorm:"size:500" json:"description"`
	RewardAmount  int64      `gorm:"not null;default:0" json:"reward_amount"`
	TimeLimit     int        `gorm:"not null;default:30" json:"time_limit"` // секунды на один вопрос
	IsActive      bool       `gorm:"not null;default:false;index" json:"is_active"`
	QuestionCount int        `gorm:"not null;default:0" json:"question_count"`
	Category      string     `gorm:"size:50" json:"category"`
	Questions     []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// IsPlayable проверяет, можно ли начать прохождение: викторина активна и вопросы загружены
func (q *Quiz) IsPlayable() bool {
	return q.IsActive && len(q.Questions) > 0
}
