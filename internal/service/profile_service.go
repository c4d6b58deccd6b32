package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/domain/repository"
)

// ProfileOverview - профиль вместе с историей попыток и балансом
type ProfileOverview struct {
	Profile  *entity.Profile          `json:"profile"`
	Attempts []entity.AttemptWithQuiz `json:"attempts"`
	Wallet   Wallet                   `json:"wallet"`
}

// Wallet - сумма всех заработанных наград
type Wallet struct {
	TotalEarned   int64 `json:"total_earned"`
	AttemptsCount int   `json:"attempts_count"`
}

// ProfileService отдает данные личного кабинета
type ProfileService struct {
	profileRepo repository.ProfileRepository
	attemptRepo repository.AttemptRepository
}

// NewProfileService создает сервис профиля
func NewProfileService(profileRepo repository.ProfileRepository, attemptRepo repository.AttemptRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo, attemptRepo: attemptRepo}
}

// GetProfile возвращает профиль пользователя
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*entity.Profile, error) {
	return s.profileRepo.GetByID(ctx, userID)
}

// ListAttempts возвращает попытки пользователя, новые первыми
func (s *ProfileService) ListAttempts(ctx context.Context, userID string) ([]entity.AttemptWithQuiz, error) {
	attempts, err := s.attemptRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []entity.AttemptWithQuiz{}
	}
	return attempts, nil
}

// GetWallet возвращает баланс кошелька и число попыток без загрузки истории
func (s *ProfileService) GetWallet(ctx context.Context, userID string) (Wallet, error) {
	total, err := s.attemptRepo.SumEarned(ctx, userID)
	if err != nil {
		return Wallet{}, err
	}
	count, err := s.attemptRepo.CountByUser(ctx, userID)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{TotalEarned: total, AttemptsCount: int(count)}, nil
}

// GetOverview загружает профиль, попытки и баланс параллельно.
// Ошибка любого из запросов отменяет остальные.
func (s *ProfileService) GetOverview(ctx context.Context, userID string) (*ProfileOverview, error) {
	var (
		profile  *entity.Profile
		attempts []entity.AttemptWithQuiz
		total    int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.profileRepo.GetByID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		attempts, err = s.ListAttempts(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.attemptRepo.SumEarned(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ProfileOverview{
		Profile:  profile,
		Attempts: attempts,
		Wallet:   Wallet{TotalEarned: total, AttemptsCount: len(attempts)},
	}, nil
}
