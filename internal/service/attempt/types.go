package attempt

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/domain/repository"
)

// Типы событий, которые движок отправляет пользователю
const (
	EventQuestion          = "QUESTION"
	EventTick              = "TICK"
	EventAnswerResult      = "ANSWER_RESULT"
	EventAttemptCompleted  = "ATTEMPT_COMPLETED"
	EventAttemptSaveFailed = "ATTEMPT_SAVE_FAILED"
)

// Статусы прохождения для клиента
const (
	StatusBrowsing   = "browsing"
	StatusInProgress = "in_progress"
)

// Config содержит настройки движка прохождений
type Config struct {
	TickInterval        time.Duration // Период таймера вопроса
	LockMargin          time.Duration // Запас TTL блокировки сверх суммарного времени вопросов
	PersistTimeout      time.Duration // Таймаут записи результата в БД
	OutboxRetryInterval time.Duration // Интервал повторной записи из outbox
	OutboxBatch         int           // Сколько записей outbox обрабатывать за проход
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		TickInterval:        time.Second,
		LockMargin:          time.Minute,
		PersistTimeout:      5 * time.Second,
		OutboxRetryInterval: 30 * time.Second,
		OutboxBatch:         100,
	}
}

// QuizSource отдает викторину, готовую к прохождению (активную, с вопросами)
type QuizSource interface {
	GetPlayable(ctx context.Context, quizID string) (*entity.Quiz, error)
}

// Notifier доставляет события в WebSocket подключения пользователя
type Notifier interface {
	SendToUser(userID string, eventType string, data interface{})
}

// Dependencies содержит зависимости движка
type Dependencies struct {
	Quizzes  QuizSource
	Attempts repository.AttemptRepository
	Outbox   repository.AttemptOutbox
	Locks    repository.CacheRepository
	Notifier Notifier
}

// QuestionView - вопрос в том виде, в котором его видит игрок (без правильного ответа)
type QuestionView struct {
	AttemptID  string          `json:"attempt_id"`
	QuizID     string          `json:"quiz_id"`
	QuestionID string          `json:"question_id"`
	Number     int             `json:"number"` // с единицы
	Total      int             `json:"total"`
	Text       string          `json:"text"`
	Options    []entity.Option `json:"options"`
	TimeLimit  int             `json:"time_limit"`
	TimeLeft   int             `json:"time_left"`
}

// TickEvent - остаток времени на текущий вопрос
type TickEvent struct {
	AttemptID string `json:"attempt_id"`
	Number    int    `json:"number"`
	TimeLeft  int    `json:"time_left"`
}

// AnswerResult - итог ответа на вопрос
type AnswerResult struct {
	AttemptID       string        `json:"attempt_id"`
	QuestionID      string        `json:"question_id"`
	Number          int           `json:"number"`
	Correct         bool          `json:"correct"`
	TimedOut        bool          `json:"timed_out"`
	CorrectOptionID string        `json:"correct_option_id"`
	CorrectAnswers  int           `json:"correct_answers"`
	Completed       bool          `json:"completed"`
	Next            *QuestionView `json:"next,omitempty"`
	Result          *Completion   `json:"result,omitempty"`
}

// Completion - итог прохождения
type Completion struct {
	Attempt entity.Attempt `json:"attempt"`
	Saved   bool           `json:"saved"`  // запись в БД прошла сразу
	Queued  bool           `json:"queued"` // запись отложена в outbox
}

// Snapshot - состояние пользователя для опроса через HTTP
type Snapshot struct {
	Status         string        `json:"status"`
	AttemptID      string        `json:"attempt_id,omitempty"`
	QuizID         string        `json:"quiz_id,omitempty"`
	QuizTitle      string        `json:"quiz_title,omitempty"`
	CorrectAnswers int           `json:"correct_answers"`
	Question       *QuestionView `json:"question,omitempty"`
}

// session - прохождение в процессе
type session struct {
	ID        string
	UserID    string
	Quiz      *entity.Quiz
	Index     int
	TimeLeft  int
	Correct   int
	StartedAt time.Time

	finished bool
	stop     chan struct{}
	Mu       sync.Mutex
}

func (s *session) currentQuestion() *entity.Question {
	return &s.Quiz.Questions[s.Index]
}

// view должен вызываться под s.Mu
func (s *session) view() *QuestionView {
	q := s.currentQuestion()
	options := make([]entity.Option, len(q.Options))
	copy(options, q.Options)
	return &QuestionView{
		AttemptID:  s.ID,
		QuizID:     s.Quiz.ID,
		QuestionID: q.ID,
		Number:     s.Index + 1,
		Total:      len(s.Quiz.Questions),
		Text:       q.Text,
		Options:    options,
		TimeLimit:  s.Quiz.TimeLimit,
		TimeLeft:   s.TimeLeft,
	}
}
