package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
	redisrepo "github.com/yourusername/quiz-reward-api/internal/repository/redis"
)

func newQuizServiceForTest(t *testing.T) (*QuizService, *MockQuizRepository, *MockQuestionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache, err := redisrepo.NewCacheRepo(client)
	require.NoError(t, err)

	quizRepo := new(MockQuizRepository)
	questionRepo := new(MockQuestionRepository)
	return NewQuizService(quizRepo, questionRepo, cache, time.Minute), quizRepo, questionRepo, mr
}

func validQuestion(text string) entity.Question {
	return entity.Question{
		Text:          text,
		Options:       entity.OptionList{{ID: "a", Text: "Да"}, {ID: "b", Text: "Нет"}},
		CorrectOption: 0,
	}
}

func TestQuizService_ListActiveUsesCache(t *testing.T) {
	svc, quizRepo, _, mr := newQuizServiceForTest(t)
	ctx := context.Background()

	quizRepo.On("ListActive", mock.Anything).Return([]entity.Quiz{{ID: "q1", Title: "Go", IsActive: true}}, nil).Once()

	first, err := svc.ListActive(ctx)
	require.NoError(t, err)
	second, err := svc.ListActive(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, mr.Exists(activeQuizzesCacheKey))
	quizRepo.AssertNumberOfCalls(t, "ListActive", 1)
}

func TestQuizService_GetActiveQuizHidesInactive(t *testing.T) {
	svc, quizRepo, _, _ := newQuizServiceForTest(t)
	quizRepo.On("GetByID", mock.Anything, "q1").Return(&entity.Quiz{ID: "q1", IsActive: false}, nil).Once()

	_, err := svc.GetActiveQuiz(context.Background(), "q1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestQuizService_GetPlayable(t *testing.T) {
	svc, quizRepo, _, _ := newQuizServiceForTest(t)
	ctx := context.Background()

	quizRepo.On("GetWithQuestions", mock.Anything, "empty").Return(&entity.Quiz{ID: "empty", IsActive: true}, nil).Once()
	_, err := svc.GetPlayable(ctx, "empty")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	quizRepo.On("GetWithQuestions", mock.Anything, "off").Return(&entity.Quiz{ID: "off", Questions: []entity.Question{validQuestion("?")}}, nil).Once()
	_, err = svc.GetPlayable(ctx, "off")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	quizRepo.On("GetWithQuestions", mock.Anything, "q1").Return(&entity.Quiz{ID: "q1", IsActive: true, Questions: []entity.Question{validQuestion("?")}}, nil).Once()
	quiz, err := svc.GetPlayable(ctx, "q1")
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 1)
}

func TestQuizService_CreateQuiz(t *testing.T) {
	svc, quizRepo, _, _ := newQuizServiceForTest(t)
	ctx := context.Background()

	_, err := svc.CreateQuiz(ctx, QuizInput{Title: "  ", TimeLimit: 30})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = svc.CreateQuiz(ctx, QuizInput{Title: "Go", TimeLimit: 0})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = svc.CreateQuiz(ctx, QuizInput{Title: "Go", TimeLimit: 30, RewardAmount: -1})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	quizRepo.On("Create", mock.Anything, mock.MatchedBy(func(q *entity.Quiz) bool {
		return q.Title == "Go" && !q.IsActive && q.TimeLimit == 30
	})).Return(nil).Once()

	quiz, err := svc.CreateQuiz(ctx, QuizInput{Title: " Go ", TimeLimit: 30, RewardAmount: 100, IsActive: true})
	require.NoError(t, err)
	assert.False(t, quiz.IsActive, "Новая викторина без вопросов создается выключенной")
	quizRepo.AssertExpectations(t)
}

func TestQuizService_SetActive(t *testing.T) {
	svc, quizRepo, _, mr := newQuizServiceForTest(t)
	ctx := context.Background()

	quizRepo.On("GetByID", mock.Anything, "empty").Return(&entity.Quiz{ID: "empty"}, nil).Once()
	_, err := svc.SetActive(ctx, "empty", true)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, mr.Set(activeQuizzesCacheKey, "[]"))
	quizRepo.On("GetByID", mock.Anything, "q1").Return(&entity.Quiz{ID: "q1", QuestionCount: 2}, nil).Once()
	quizRepo.On("SetActive", mock.Anything, "q1", true).Return(nil).Once()

	quiz, err := svc.SetActive(ctx, "q1", true)
	require.NoError(t, err)
	assert.True(t, quiz.IsActive)
	assert.False(t, mr.Exists(activeQuizzesCacheKey), "Изменение каталога сбрасывает кеш")
}

func TestQuizService_UpdateQuiz(t *testing.T) {
	svc, quizRepo, _, _ := newQuizServiceForTest(t)
	ctx := context.Background()

	quizRepo.On("GetByID", mock.Anything, "q1").Return(&entity.Quiz{ID: "q1", Title: "Old", QuestionCount: 3}, nil).Once()
	quizRepo.On("Update", mock.Anything, mock.MatchedBy(func(q *entity.Quiz) bool {
		return q.ID == "q1" && q.Title == "New" && q.RewardAmount == 250 && q.IsActive
	})).Return(nil).Once()

	quiz, err := svc.UpdateQuiz(ctx, "q1", QuizInput{Title: "New", TimeLimit: 20, RewardAmount: 250, IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "New", quiz.Title)

	quizRepo.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.ErrNotFound).Once()
	_, err = svc.UpdateQuiz(ctx, "missing", QuizInput{Title: "New", TimeLimit: 20})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestQuizService_AddQuestions(t *testing.T) {
	svc, quizRepo, questionRepo, _ := newQuizServiceForTest(t)
	ctx := context.Background()

	quizRepo.On("GetByID", mock.Anything, "q1").Return(&entity.Quiz{ID: "q1", QuestionCount: 1}, nil)
	questionRepo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(qs []entity.Question) bool {
		return len(qs) == 2 && qs[0].QuizID == "q1" && qs[1].QuizID == "q1"
	})).Return(nil).Once()
	quizRepo.On("IncrementQuestionCount", mock.Anything, "q1", 2).Return(nil).Once()

	quiz, err := svc.AddQuestions(ctx, "q1", []entity.Question{validQuestion("Первый?"), validQuestion("Второй?")})
	require.NoError(t, err)
	assert.Equal(t, 3, quiz.QuestionCount)
	questionRepo.AssertExpectations(t)
	quizRepo.AssertExpectations(t)

	broken := validQuestion("Сломанный?")
	broken.CorrectOption = 5
	_, err = svc.AddQuestions(ctx, "q1", []entity.Question{broken})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.AddQuestions(ctx, "q1", nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	tooMany := make([]entity.Question, maxQuestionsPerQuiz)
	for i := range tooMany {
		tooMany[i] = validQuestion("?")
	}
	_, err = svc.AddQuestions(ctx, "q1", tooMany)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	questionRepo.AssertNumberOfCalls(t, "CreateBatch", 1)
}
