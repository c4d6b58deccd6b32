package attempt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
	"github.com/yourusername/quiz-reward-api/internal/pkg/metrics"
)

// Engine ведет прохождения викторин: по одному на пользователя,
// с таймером на каждый вопрос и однократной записью результата.
type Engine struct {
	deps Dependencies
	cfg  Config

	mu       sync.RWMutex
	sessions map[string]*session // по userID

	now        func() time.Time
	startTimer func(s *session)

	wg        sync.WaitGroup
	closed    chan struct{}
	closeOnce sync.Once
}

// NewEngine создает движок прохождений
func NewEngine(deps Dependencies, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.LockMargin <= 0 {
		cfg.LockMargin = def.LockMargin
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = def.PersistTimeout
	}
	if cfg.OutboxRetryInterval <= 0 {
		cfg.OutboxRetryInterval = def.OutboxRetryInterval
	}
	if cfg.OutboxBatch <= 0 {
		cfg.OutboxBatch = def.OutboxBatch
	}

	e := &Engine{
		deps:     deps,
		cfg:      cfg,
		sessions: make(map[string]*session),
		now:      time.Now,
		closed:   make(chan struct{}),
	}
	e.startTimer = e.runTimer
	return e
}

func lockKey(userID string) string {
	return "attempt:lock:" + userID
}

// Start начинает прохождение викторины. Второе прохождение у того же
// пользователя до завершения первого отклоняется с ErrConflict, в том числе
// с другого инстанса сервера.
func (e *Engine) Start(ctx context.Context, userID, quizID string) (*QuestionView, error) {
	if e.get(userID) != nil {
		return nil, fmt.Errorf("%w: attempt already in progress", apperrors.ErrConflict)
	}

	quiz, err := e.deps.Quizzes.GetPlayable(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.TimeLimit <= 0 {
		return nil, fmt.Errorf("%w: quiz has no time limit", apperrors.ErrConflict)
	}

	attemptID := uuid.NewString()
	ttl := time.Duration(len(quiz.Questions)*quiz.TimeLimit)*time.Second + e.cfg.LockMargin
	acquired, err := e.deps.Locks.SetNX(ctx, lockKey(userID), attemptID, ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire attempt lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: attempt already in progress", apperrors.ErrConflict)
	}

	s := &session{
		ID:        attemptID,
		UserID:    userID,
		Quiz:      quiz,
		TimeLeft:  quiz.TimeLimit,
		StartedAt: e.now(),
		stop:      make(chan struct{}),
	}

	e.mu.Lock()
	if _, busy := e.sessions[userID]; busy {
		e.mu.Unlock()
		e.releaseLock(userID, attemptID)
		return nil, fmt.Errorf("%w: attempt already in progress", apperrors.ErrConflict)
	}
	e.sessions[userID] = s
	e.mu.Unlock()

	metrics.AttemptsStarted.Inc()
	metrics.AttemptsInProgress.Inc()
	log.WithFields(log.Fields{
		"user_id":    userID,
		"quiz_id":    quizID,
		"attempt_id": attemptID,
		"questions":  len(quiz.Questions),
	}).Info("[AttemptEngine] Прохождение начато")

	s.Mu.Lock()
	view := s.view()
	s.Mu.Unlock()

	e.notify(userID, EventQuestion, view)
	e.startTimer(s)
	return view, nil
}

// Submit принимает ответ на текущий вопрос. questionID необязателен: если он
// передан и вопрос уже закрыт таймером, ответ отклоняется с ErrConflict.
func (e *Engine) Submit(ctx context.Context, userID, questionID, optionID string) (*AnswerResult, error) {
	s := e.get(userID)
	if s == nil {
		return nil, fmt.Errorf("%w: no attempt in progress", apperrors.ErrNotFound)
	}

	s.Mu.Lock()
	if s.finished {
		s.Mu.Unlock()
		return nil, fmt.Errorf("%w: no attempt in progress", apperrors.ErrNotFound)
	}
	q := s.currentQuestion()
	if questionID != "" && questionID != q.ID {
		s.Mu.Unlock()
		return nil, fmt.Errorf("%w: question is already closed", apperrors.ErrConflict)
	}
	selected := q.OptionIndex(optionID)
	if selected == entity.NoAnswer {
		s.Mu.Unlock()
		return nil, fmt.Errorf("%w: unknown option %q", apperrors.ErrValidation, optionID)
	}
	result, attempt := e.answerLocked(s, selected)
	s.Mu.Unlock()

	e.deliver(s, result, attempt)
	return result, nil
}

// State возвращает текущее состояние пользователя
func (e *Engine) State(ctx context.Context, userID string) *Snapshot {
	s := e.get(userID)
	if s == nil {
		return &Snapshot{Status: StatusBrowsing}
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.finished {
		return &Snapshot{Status: StatusBrowsing}
	}
	return &Snapshot{
		Status:         StatusInProgress,
		AttemptID:      s.ID,
		QuizID:         s.Quiz.ID,
		QuizTitle:      s.Quiz.Title,
		CorrectAnswers: s.Correct,
		Question:       s.view(),
	}
}

// Abandon прерывает прохождение без записи результата
func (e *Engine) Abandon(ctx context.Context, userID string) error {
	s := e.get(userID)
	if s == nil {
		return fmt.Errorf("%w: no attempt in progress", apperrors.ErrNotFound)
	}
	s.Mu.Lock()
	if s.finished {
		s.Mu.Unlock()
		return fmt.Errorf("%w: no attempt in progress", apperrors.ErrNotFound)
	}
	s.finished = true
	close(s.stop)
	s.Mu.Unlock()

	e.remove(s)
	e.releaseLock(s.UserID, s.ID)
	log.Infof("[AttemptEngine] Пользователь %s прервал прохождение %s", userID, s.ID)
	return nil
}

// AbandonUser прерывает прохождение, если оно есть. Используется при выходе из сессии.
func (e *Engine) AbandonUser(userID string) {
	if err := e.Abandon(context.Background(), userID); err == nil {
		log.Infof("[AttemptEngine] Прохождение пользователя %s закрыто вместе с сессией", userID)
	}
}

// Close останавливает таймеры и снимает блокировки незавершенных прохождений
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.wg.Wait()

		e.mu.RLock()
		users := make([]string, 0, len(e.sessions))
		for userID := range e.sessions {
			users = append(users, userID)
		}
		e.mu.RUnlock()

		for _, userID := range users {
			_ = e.Abandon(context.Background(), userID)
		}
	})
}

func (e *Engine) get(userID string) *session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessions[userID]
}

func (e *Engine) remove(s *session) {
	e.mu.Lock()
	current, ok := e.sessions[s.UserID]
	if ok && current == s {
		delete(e.sessions, s.UserID)
	}
	e.mu.Unlock()
	if ok && current == s {
		metrics.AttemptsInProgress.Dec()
	}
}

func (e *Engine) releaseLock(userID, attemptID string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PersistTimeout)
	defer cancel()
	if _, err := e.deps.Locks.DeleteIfValue(ctx, lockKey(userID), attemptID); err != nil {
		log.Warnf("[AttemptEngine] Не удалось снять блокировку прохождения %s: %v", attemptID, err)
	}
}

// answerLocked засчитывает выбор и переходит к следующему вопросу.
// Вызывается под s.Mu. Возвращает попытку, если прохождение завершено.
func (e *Engine) answerLocked(s *session, selected int) (*AnswerResult, *entity.Attempt) {
	q := s.currentQuestion()
	correct := q.IsCorrect(selected)
	if correct {
		s.Correct++
	}

	result := &AnswerResult{
		AttemptID:  s.ID,
		QuestionID: q.ID,
		Number:     s.Index + 1,
		Correct:    correct,
		TimedOut:   selected == entity.NoAnswer,
	}
	if q.IsValidOption(q.CorrectOption) {
		result.CorrectOptionID = q.Options[q.CorrectOption].ID
	}
	result.CorrectAnswers = s.Correct

	if s.Index+1 < len(s.Quiz.Questions) {
		s.Index++
		s.TimeLeft = s.Quiz.TimeLimit
		result.Next = s.view()
		return result, nil
	}

	s.finished = true
	close(s.stop)
	result.Completed = true

	total := len(s.Quiz.Questions)
	score, earned := Score(s.Correct, total, s.Quiz.RewardAmount)
	return result, &entity.Attempt{
		ID:             s.ID,
		UserID:         s.UserID,
		QuizID:         s.Quiz.ID,
		Score:          score,
		EarnedAmount:   earned,
		TotalQuestions: total,
		CorrectAnswers: s.Correct,
		CompletedAt:    e.now(),
	}
}

// deliver завершает прохождение при необходимости и рассылает события
func (e *Engine) deliver(s *session, result *AnswerResult, attempt *entity.Attempt) {
	if attempt != nil {
		result.Result = e.finish(s, attempt)
	}

	e.notify(s.UserID, EventAnswerResult, result)
	if result.Next != nil {
		e.notify(s.UserID, EventQuestion, result.Next)
	}
	if result.Result != nil {
		if !result.Result.Saved {
			e.notify(s.UserID, EventAttemptSaveFailed, result.Result)
		}
		e.notify(s.UserID, EventAttemptCompleted, result.Result)
	}
}

// finish записывает попытку ровно один раз. При ошибке БД попытка уходит в outbox.
func (e *Engine) finish(s *session, attempt *entity.Attempt) *Completion {
	defer func() {
		e.remove(s)
		e.releaseLock(s.UserID, s.ID)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PersistTimeout)
	defer cancel()

	completion := &Completion{Attempt: *attempt}
	fields := log.Fields{
		"user_id":    attempt.UserID,
		"quiz_id":    attempt.QuizID,
		"attempt_id": attempt.ID,
		"correct":    attempt.CorrectAnswers,
		"total":      attempt.TotalQuestions,
		"earned":     attempt.EarnedAmount,
	}

	err := e.deps.Attempts.Create(ctx, attempt)
	if err == nil {
		completion.Saved = true
		metrics.AttemptsCompleted.WithLabelValues("saved").Inc()
		log.WithFields(fields).Info("[AttemptEngine] Прохождение завершено")
		return completion
	}

	log.WithFields(fields).Errorf("[AttemptEngine] Ошибка сохранения попытки: %v", err)
	if perr := e.deps.Outbox.Push(ctx, attempt); perr != nil {
		metrics.AttemptsCompleted.WithLabelValues("dropped").Inc()
		log.WithFields(fields).Errorf("[AttemptEngine] Попытка не сохранена и не поставлена в outbox: %v", perr)
		return completion
	}
	completion.Queued = true
	metrics.AttemptsCompleted.WithLabelValues("queued").Inc()
	metrics.OutboxDepth.Inc()
	return completion
}

func (e *Engine) notify(userID, eventType string, data interface{}) {
	if e.deps.Notifier == nil {
		return
	}
	e.deps.Notifier.SendToUser(userID, eventType, data)
}

func (e *Engine) runTimer(s *session) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-e.closed:
				return
			case <-ticker.C:
				if e.tick(s) {
					return
				}
			}
		}
	}()
}

// tick уменьшает остаток времени на вопрос. На нуле вопрос закрывается
// без ответа. Возвращает true, когда таймер больше не нужен.
func (e *Engine) tick(s *session) bool {
	s.Mu.Lock()
	if s.finished {
		s.Mu.Unlock()
		return true
	}
	s.TimeLeft--
	if s.TimeLeft > 0 {
		event := TickEvent{AttemptID: s.ID, Number: s.Index + 1, TimeLeft: s.TimeLeft}
		s.Mu.Unlock()
		e.notify(s.UserID, EventTick, event)
		return false
	}

	metrics.AutoSubmits.Inc()
	result, attempt := e.answerLocked(s, entity.NoAnswer)
	s.Mu.Unlock()

	e.deliver(s, result, attempt)
	return attempt != nil
}
