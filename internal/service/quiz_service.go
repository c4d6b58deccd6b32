package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/domain/repository"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
)

const (
	activeQuizzesCacheKey = "quizzes:active"
	maxQuestionsPerQuiz   = 100
)

// QuizInput - редактируемые поля викторины
type QuizInput struct {
	Title        string
	Description  string
	RewardAmount int64
	TimeLimit    int // секунды на вопрос
	Category     string
	IsActive     bool
}

func (in *QuizInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	case len(in.Title) > 100:
		return fmt.Errorf("%w: title is too long", apperrors.ErrValidation)
	case in.RewardAmount < 0:
		return fmt.Errorf("%w: reward amount must not be negative", apperrors.ErrValidation)
	case in.TimeLimit <= 0:
		return fmt.Errorf("%w: time limit must be positive", apperrors.ErrValidation)
	}
	return nil
}

// QuizService предоставляет методы для работы с каталогом викторин
type QuizService struct {
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
	cacheRepo    repository.CacheRepository
	cacheTTL     time.Duration
}

// NewQuizService создает новый сервис викторин
func NewQuizService(
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	cacheRepo repository.CacheRepository,
	cacheTTL time.Duration,
) *QuizService {
	return &QuizService{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		cacheRepo:    cacheRepo,
		cacheTTL:     cacheTTL,
	}
}

// ListActive возвращает активные викторины. Кеш сбрасывается при любом изменении каталога.
func (s *QuizService) ListActive(ctx context.Context) ([]entity.Quiz, error) {
	if s.cacheTTL > 0 {
		var cached []entity.Quiz
		err := s.cacheRepo.GetJSON(ctx, activeQuizzesCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Warnf("[QuizService] Ошибка чтения кеша каталога: %v", err)
		}
	}

	quizzes, err := s.quizRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if quizzes == nil {
		quizzes = []entity.Quiz{}
	}

	if s.cacheTTL > 0 {
		if err := s.cacheRepo.SetJSON(ctx, activeQuizzesCacheKey, quizzes, s.cacheTTL); err != nil {
			log.Warnf("[QuizService] Не удалось записать каталог в кеш: %v", err)
		}
	}
	return quizzes, nil
}

// GetActiveQuiz возвращает активную викторину. Неактивная викторина для игрока не существует.
func (s *QuizService) GetActiveQuiz(ctx context.Context, id string) (*entity.Quiz, error) {
	quiz, err := s.quizRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !quiz.IsActive {
		return nil, apperrors.ErrNotFound
	}
	return quiz, nil
}

// GetPlayable возвращает викторину с вопросами для начала прохождения
func (s *QuizService) GetPlayable(ctx context.Context, id string) (*entity.Quiz, error) {
	quiz, err := s.quizRepo.GetWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	if !quiz.IsActive {
		return nil, apperrors.ErrNotFound
	}
	if !quiz.IsPlayable() {
		return nil, fmt.Errorf("%w: quiz has no questions", apperrors.ErrConflict)
	}
	return quiz, nil
}

// ListAll возвращает все викторины для админ-панели
func (s *QuizService) ListAll(ctx context.Context) ([]entity.Quiz, error) {
	return s.quizRepo.ListAll(ctx)
}

// GetWithQuestions возвращает викторину вместе с вопросами (для админ-панели)
func (s *QuizService) GetWithQuestions(ctx context.Context, id string) (*entity.Quiz, error) {
	return s.quizRepo.GetWithQuestions(ctx, id)
}

// CreateQuiz создает новую викторину. Вопросов у новой викторины нет, поэтому она создается выключенной.
func (s *QuizService) CreateQuiz(ctx context.Context, in QuizInput) (*entity.Quiz, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	quiz := &entity.Quiz{
		Title:        in.Title,
		Description:  in.Description,
		RewardAmount: in.RewardAmount,
		TimeLimit:    in.TimeLimit,
		Category:     in.Category,
		IsActive:     false,
	}
	if err := s.quizRepo.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}
	log.Infof("[QuizService] Создана викторина %s (%s)", quiz.ID, quiz.Title)
	return quiz, nil
}

// UpdateQuiz редактирует викторину
func (s *QuizService) UpdateQuiz(ctx context.Context, id string, in QuizInput) (*entity.Quiz, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	quiz, err := s.quizRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.IsActive && quiz.QuestionCount == 0 {
		return nil, fmt.Errorf("%w: cannot activate a quiz without questions", apperrors.ErrValidation)
	}

	quiz.Title = in.Title
	quiz.Description = in.Description
	quiz.RewardAmount = in.RewardAmount
	quiz.TimeLimit = in.TimeLimit
	quiz.Category = in.Category
	quiz.IsActive = in.IsActive

	if err := s.quizRepo.Update(ctx, quiz); err != nil {
		return nil, err
	}
	s.invalidateCatalog(ctx)
	return quiz, nil
}

// SetActive включает или выключает викторину
func (s *QuizService) SetActive(ctx context.Context, id string, active bool) (*entity.Quiz, error) {
	quiz, err := s.quizRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if active && quiz.QuestionCount == 0 {
		return nil, fmt.Errorf("%w: cannot activate a quiz without questions", apperrors.ErrValidation)
	}
	if err := s.quizRepo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	quiz.IsActive = active
	s.invalidateCatalog(ctx)
	log.Infof("[QuizService] Викторина %s: is_active=%t", id, active)
	return quiz, nil
}

// AddQuestions добавляет вопросы к викторине. Существующие вопросы не меняются.
func (s *QuizService) AddQuestions(ctx context.Context, quizID string, questions []entity.Question) (*entity.Quiz, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: at least one question is required", apperrors.ErrValidation)
	}
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.QuestionCount+len(questions) > maxQuestionsPerQuiz {
		return nil, fmt.Errorf("%w: максимальное количество вопросов – %d", apperrors.ErrValidation, maxQuestionsPerQuiz)
	}

	for i := range questions {
		questions[i].QuizID = quizID
		if err := questions[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", apperrors.ErrValidation, i+1, err)
		}
	}

	if err := s.questionRepo.CreateBatch(ctx, questions); err != nil {
		return nil, fmt.Errorf("failed to create questions: %w", err)
	}
	// Атомарное увеличение question_count без перетирания других полей
	if err := s.quizRepo.IncrementQuestionCount(ctx, quizID, len(questions)); err != nil {
		return nil, err
	}
	quiz.QuestionCount += len(questions)
	s.invalidateCatalog(ctx)
	return quiz, nil
}

func (s *QuizService) invalidateCatalog(ctx context.Context) {
	if err := s.cacheRepo.Delete(ctx, activeQuizzesCacheKey); err != nil {
		log.Warnf("[QuizService] Не удалось сбросить кеш каталога: %v", err)
	}
}
