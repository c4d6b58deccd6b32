package attempt

import (
	"context"
	"errors"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
	redisrepo "github.com/yourusername/quiz-reward-api/internal/repository/redis"
)

// MockAttemptRepository - мок repository.AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *entity.Attempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) ListByUser(ctx context.Context, userID string) ([]entity.AttemptWithQuiz, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]entity.AttemptWithQuiz), args.Error(1)
}

func (m *MockAttemptRepository) SumEarned(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttemptRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttemptRepository) ListAll(ctx context.Context, limit, offset int) ([]entity.AttemptWithQuiz, int64, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]entity.AttemptWithQuiz), args.Get(1).(int64), args.Error(2)
}

type stubQuizSource struct {
	quizzes map[string]*entity.Quiz
}

func (s *stubQuizSource) GetPlayable(ctx context.Context, quizID string) (*entity.Quiz, error) {
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return quiz, nil
}

type sentEvent struct {
	UserID string
	Type   string
	Data   interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) SendToUser(userID string, eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{UserID: userID, Type: eventType, Data: data})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	engine   *Engine
	attempts *MockAttemptRepository
	notifier *recordingNotifier
	outbox   *redisrepo.AttemptOutbox
	mr       *miniredis.Miniredis
}

// twoQuestionQuiz - викторина q1: награда 100, два вопроса, правильный вариант "b" и "c"
func twoQuestionQuiz() *entity.Quiz {
	return &entity.Quiz{
		ID:            "q1",
		Title:         "Основы Go",
		RewardAmount:  100,
		TimeLimit:     3,
		IsActive:      true,
		QuestionCount: 2,
		Questions: []entity.Question{
			{
				ID:            "qq1",
				QuizID:        "q1",
				Text:          "Какой тип у nil-слайса?",
				Options:       entity.OptionList{{ID: "a", Text: "map"}, {ID: "b", Text: "slice"}},
				CorrectOption: 1,
			},
			{
				ID:            "qq2",
				QuizID:        "q1",
				Text:          "Что вернет len(nil)?",
				Options:       entity.OptionList{{ID: "a", Text: "panic"}, {ID: "b", Text: "-1"}, {ID: "c", Text: "0"}},
				CorrectOption: 2,
			},
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locks, err := redisrepo.NewCacheRepo(client)
	require.NoError(t, err)
	outbox, err := redisrepo.NewAttemptOutbox(client)
	require.NoError(t, err)

	attempts := new(MockAttemptRepository)
	notifier := &recordingNotifier{}
	engine := NewEngine(Dependencies{
		Quizzes:  &stubQuizSource{quizzes: map[string]*entity.Quiz{"q1": twoQuestionQuiz()}},
		Attempts: attempts,
		Outbox:   outbox,
		Locks:    locks,
		Notifier: notifier,
	}, DefaultConfig())
	// Таймер двигаем вручную через tick
	engine.startTimer = func(*session) {}

	return &testEnv{engine: engine, attempts: attempts, notifier: notifier, outbox: outbox, mr: mr}
}

func (env *testEnv) session(t *testing.T, userID string) *session {
	t.Helper()
	s := env.engine.get(userID)
	require.NotNil(t, s, "Ожидалось прохождение в процессе")
	return s
}

func attemptMatching(correct, total int, score float64, earned int64) interface{} {
	return mock.MatchedBy(func(a *entity.Attempt) bool {
		return a.UserID == "u1" && a.QuizID == "q1" &&
			a.CorrectAnswers == correct && a.TotalQuestions == total &&
			a.Score == score && a.EarnedAmount == earned
	})
}

func TestEngine_AllCorrect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.attempts.On("Create", mock.Anything, attemptMatching(2, 2, 100, 100)).Return(nil).Once()

	view, err := env.engine.Start(ctx, "u1", "q1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.Number)
	assert.Equal(t, 2, view.Total)
	assert.Equal(t, 3, view.TimeLeft)
	assert.True(t, env.mr.Exists(lockKey("u1")), "Блокировка должна быть взята")

	res, err := env.engine.Submit(ctx, "u1", "qq1", "b")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.False(t, res.Completed)
	require.NotNil(t, res.Next)
	assert.Equal(t, "qq2", res.Next.QuestionID)

	res, err = env.engine.Submit(ctx, "u1", "", "c")
	require.NoError(t, err)
	assert.True(t, res.Completed)
	require.NotNil(t, res.Result)
	assert.True(t, res.Result.Saved)
	assert.Equal(t, 100.0, res.Result.Attempt.Score)
	assert.Equal(t, int64(100), res.Result.Attempt.EarnedAmount)
	assert.Equal(t, 2, res.Result.Attempt.CorrectAnswers)
	assert.Equal(t, 2, res.Result.Attempt.TotalQuestions)

	env.attempts.AssertExpectations(t)
	assert.Equal(t, StatusBrowsing, env.engine.State(ctx, "u1").Status)
	assert.False(t, env.mr.Exists(lockKey("u1")), "Блокировка должна быть снята")
	assert.Equal(t,
		[]string{EventQuestion, EventAnswerResult, EventQuestion, EventAnswerResult, EventAttemptCompleted},
		env.notifier.types())
}

func TestEngine_HalfCorrect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.attempts.On("Create", mock.Anything, attemptMatching(1, 2, 50, 50)).Return(nil).Once()

	_, err := env.engine.Start(ctx, "u1", "q1")
	require.NoError(t, err)

	res, err := env.engine.Submit(ctx, "u1", "", "a")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, "b", res.CorrectOptionID)

	res, err = env.engine.Submit(ctx, "u1", "", "c")
	require.NoError(t, err)
	require.NotNil(t, res.Result)
	assert.Equal(t, 50.0, res.Result.Attempt.Score)
	assert.Equal(t, int64(50), res.Result.Attempt.EarnedAmount)
	env.attempts.AssertExpectations(t)
}

func TestEngine_TimeoutCountsAsIncorrect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.attempts.On("Create", mock.Anything, attemptMatching(1, 2, 50, 50)).Return(nil).Once()

	_, err := env.engine.Start(ctx, "u1", "q1")
	require.NoError(t, err)
	s := env.session(t, "u1")

	assert.False(t, env.engine.tick(s))
	assert.False(t, env.engine.tick(s))
	assert.Equal(t, 1, env.engine.State(ctx, "u1").Question.TimeLeft)

	// Третий тик обнуляет таймер: вопрос закрыт без ответа, переходим ко второму
	assert.False(t, env.engine.tick(s))
	snap := env.engine.State(ctx, "u1")
	require.Equal(t, StatusInProgress, snap.Status)
	assert.Equal(t, 2, snap.Question.Number)
	assert.Equal(t, 3, snap.Question.TimeLeft, "Таймер должен сброситься для следующего вопроса")
	assert.Equal(t, 0, snap.CorrectAnswers)

	// Ответ на закрытый вопрос отклоняется
	_, err = env.engine.Submit(ctx, "u1", "qq1", "b")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	res, err := env.engine.Submit(ctx, "u1", "qq2", "c")
	require.NoError(t, err)
	assert.True(t, res.Completed)
	env.attempts.AssertExpectations(t)

	var timedOut *AnswerResult
	for _, e := range env.notifier.events {
		if r, ok := e.Data.(*AnswerResult); ok && r.TimedOut {
			timedOut = r
		}
	}
	require.NotNil(t, timedOut, "Должно быть событие ANSWER_RESULT по таймауту")
	assert.False(t, timedOut.Correct)
	assert.Contains(t, env.notifier.types(), EventTick)
}

func TestEngine_TimeoutOnLastQuestionCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.attempts.On("Create", mock.Anything, attemptMatching(0, 2, 0, 0)).Return(nil).Once()

	_, err := env.engine.Start(ctx, "u1", "q1")
	require.NoError(t, err)
	s := env.session(t, "u1")

	done := false
	for i := 0; i < 6 && !done; i++ {
		done = env.engine.tick(s)
	}
	assert.True(t, done, "Таймер должен остановиться после последнего вопроса")
	assert.Equal(t, StatusBrowsing, env.engine.State(ctx, "u1").Status)
	assert.True(t, env.engine.tick(s), "Тик завершенного прохождения ничего не делает")
	env.attempts.AssertExpectations(t)
}

func TestEngine_PersistenceFailureGoesToOutbox(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.attempts.On("Create", mock.Anything, attemptMatching(2, 2, 100, 100)).Return(errors.New("connection refused")).Once()

	_, err := env.engine.Start(ctx, "u1", "q1")
	require.NoError(t, err)
	_, err = env.engine.Submit(ctx, "u1", "", "b")
	require.NoError(t, err)
	res, err := env.engine.Submit(ctx, "u1", "", "c")
	require.NoError(t, err, "Ошибка БД не должна возвращаться игроку")

	require.NotNil(t, res.Result)
	assert.False(t, res.Result.Saved)
	assert.True(t, res.Result.Queued)
	assert.Contains(t, env.notifier.types(), EventAttemptSaveFailed)
	assert.Contains(t, env.notifier.types(), EventAttemptCompleted)
	assert.Equal(t, StatusBrowsing, env.engine.State(ctx, "u1").Status)

	depth, err := env.outbox.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	// Воркер дописывает попытку с тем же ID
	env.attempts.On("Create", mock.Anything, mock.MatchedBy(func(a *entity.Attempt) bool {
		return a.ID == res.Result.Attempt.ID && a.EarnedAmount == 100
	})).Return(nil).Once()

	saved, err := env.engine.RetryOutbox(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	depth, err = env.outbox.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
	env.attempts.AssertExpectations(t)
}

func TestEngine_RetryOutboxKeepsEntryOnFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.outbox.Push(ctx, &entity.Attempt{ID: "a1", UserID: "u1", QuizID: "q1"}))
	env.attempts.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	saved, err := env.engine.RetryOutbox(ctx)
	assert.Error(t, err)
	assert.Zero(t, saved)

	depth, err := env.outbox.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth, "Попытка должна вернуться в outbox")
}

func TestEngine_RetryOutboxKeepsEntryWhenContextCancelled(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.outbox.Push(context.Background(), &entity.Attempt{ID: "a1", UserID: "u1", QuizID: "q1"}))

	// Остановка сервиса отменяет контекст прямо во время записи
	ctx, cancel := context.WithCancel(context.Background())
	env.attempts.On("Create", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(context.Canceled).Once()

	saved, err := env.engine.RetryOutbox(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, saved)

	depth, err := env.outbox.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth, "Попытка должна вернуться в outbox несмотря на отмененный контекст")
	assert.False(t, env.mr.Exists("attempts:outbox:processing"))
}

func TestEngine_RecoverOutboxRequeuesClaimedEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.outbox.Push(ctx, &entity.Attempt{ID: "a1", UserID: "u1", QuizID: "q1"}))
	_, err := env.outbox.Claim(ctx)
	require.NoError(t, err)

	env.engine.RecoverOutbox(ctx)

	env.attempts.On("Create", mock.Anything, mock.MatchedBy(func(a *entity.Attempt) bool { return a.ID == "a1" })).Return(nil).Once()
	saved, err := env.engine.RetryOutbox(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	assert.False(t, env.mr.Exists("attempts:outbox:processing"))
	env.attempts.AssertExpectations(t)
}

func TestEngine_OneAttemptPerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.Start(ctx, "u1", "q1")
	require.NoError(t, err)

	_, err = env.engine.Start(ctx, "u1", "q1")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// Блокировка, взятая другим инстансом, тоже мешает старту
	require.NoError(t, env.mr.Set(lockKey("u2"), "other-instance"))
	_, err = env.engine.Start(ctx, "u2", "q1")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, StatusBrowsing, env.engine.State(ctx, "u2").Status)
}

func TestEngine_StartUnknownQuiz(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Start(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.False(t, env.mr.Exists(lockKey("u1")))
}

func TestEngine_SubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.Submit(ctx, "u1", "", "a")
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "Без прохождения ответ не принимается")

	_, err = env.engine.Start(ctx, "u1", "q1")
	require.NoError(t, err)

	_, err = env.engine.Submit(ctx, "u1", "", "zzz")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, 1, env.engine.State(ctx, "u1").Question.Number, "Неизвестный вариант не двигает прохождение")
}

func TestEngine_Abandon(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.Start(ctx, "u1", "q1")
	require.NoError(t, err)
	_, err = env.engine.Submit(ctx, "u1", "", "b")
	require.NoError(t, err)

	require.NoError(t, env.engine.Abandon(ctx, "u1"))
	assert.Equal(t, StatusBrowsing, env.engine.State(ctx, "u1").Status)
	assert.False(t, env.mr.Exists(lockKey("u1")))
	assert.ErrorIs(t, env.engine.Abandon(ctx, "u1"), apperrors.ErrNotFound)
	env.attempts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	// После отказа можно начать заново
	_, err = env.engine.Start(ctx, "u1", "q1")
	assert.NoError(t, err)
}
