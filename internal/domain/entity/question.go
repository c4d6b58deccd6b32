package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// NoAnswer - сентинел выбора, которым таймер закрывает вопрос без ответа пользователя
const NoAnswer = -1

// Option - вариант ответа на вопрос
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// OptionList - пользовательский тип для хранения вариантов ответа в JSONB
type OptionList []Option

// Scan реализует интерфейс sql.Scanner для OptionList
// Используется GORM для чтения JSONB данных из базы
func (o *OptionList) Scan(value interface{}) error {
	if value == nil {
		*o = OptionList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = OptionList{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для OptionList
func (o OptionList) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Question представляет вопрос викторины
type Question struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID        string     `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Text          string     `gorm:"size:500;not null" json:"text"`
	Options       OptionList `gorm:"type:jsonb;not null" json:"options"`
	CorrectOption int        `gorm:"not null" json:"-"` // Скрыто от клиента, индекс в Options
	CreatedAt     time.Time  `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// OptionIndex возвращает индекс варианта по его идентификатору, -1 если такого нет
func (q *Question) OptionIndex(optionID string) int {
	for i, opt := range q.Options {
		if opt.ID == optionID {
			return i
		}
	}
	return NoAnswer
}

// IsCorrect проверяет, является ли выбранный индекс правильным.
// NoAnswer и индексы вне диапазона всегда неверны.
func (q *Question) IsCorrect(selected int) bool {
	if !q.IsValidOption(selected) {
		return false
	}
	return selected == q.CorrectOption
}

// IsValidOption проверяет, является ли индекс допустимым
func (q *Question) IsValidOption(selected int) bool {
	return selected >= 0 && selected < len(q.Options)
}

// Validate проверяет целостность вопроса перед сохранением
func (q *Question) Validate() error {
	if q.Text == "" {
		return errors.New("question text is required")
	}
	if len(q.Options) < 2 {
		return errors.New("question must have at least two options")
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if opt.ID == "" || opt.Text == "" {
			return errors.New("option id and text are required")
		}
		if _, dup := seen[opt.ID]; dup {
			return errors.New("option ids must be unique")
		}
		seen[opt.ID] = struct{}{}
	}
	if !q.IsValidOption(q.CorrectOption) {
		return errors.New("correct option is out of range")
	}
	return nil
}
