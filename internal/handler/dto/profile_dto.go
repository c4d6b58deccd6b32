package dto

import (
	"time"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/service"
)

// ProfileResponse - профиль текущего пользователя
type ProfileResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	ReferralCode string    `json:"referral_code"`
	CreatedAt    time.Time `json:"created_at"`
}

// AttemptResponse - строка истории прохождений
type AttemptResponse struct {
	ID             string    `json:"id"`
	QuizID         string    `json:"quiz_id"`
	QuizTitle      string    `json:"quiz_title"`
	RewardAmount   int64     `json:"reward_amount"`
	Score          float64   `json:"score"`
	EarnedAmount   int64     `json:"earned_amount"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	CompletedAt    time.Time `json:"completed_at"`
}

// WalletResponse - баланс кошелька
type WalletResponse struct {
	Balance       int64 `json:"balance"`
	AttemptsCount int   `json:"attempts_count"`
}

// OverviewResponse - данные страницы профиля
type OverviewResponse struct {
	Profile  *ProfileResponse  `json:"profile"`
	Attempts []AttemptResponse `json:"attempts"`
	Wallet   WalletResponse    `json:"wallet"`
}

// NewProfileResponse создает DTO профиля
func NewProfileResponse(p *entity.Profile) *ProfileResponse {
	if p == nil {
		return nil
	}
	return &ProfileResponse{
		ID:           p.ID,
		Email:        p.Email,
		Name:         p.Name,
		ReferralCode: p.ReferralCode,
		CreatedAt:    p.CreatedAt,
	}
}

// NewAttemptListResponse создает DTO истории
func NewAttemptListResponse(attempts []entity.AttemptWithQuiz) []AttemptResponse {
	result := make([]AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		result = append(result, AttemptResponse{
			ID:             a.ID,
			QuizID:         a.QuizID,
			QuizTitle:      a.QuizTitle,
			RewardAmount:   a.RewardAmount,
			Score:          a.Score,
			EarnedAmount:   a.EarnedAmount,
			CorrectAnswers: a.CorrectAnswers,
			TotalQuestions: a.TotalQuestions,
			CompletedAt:    a.CompletedAt,
		})
	}
	return result
}

// NewWalletResponse создает DTO кошелька
func NewWalletResponse(w service.Wallet) WalletResponse {
	return WalletResponse{Balance: w.TotalEarned, AttemptsCount: w.AttemptsCount}
}

// NewOverviewResponse создает DTO страницы профиля
func NewOverviewResponse(o *service.ProfileOverview) *OverviewResponse {
	return &OverviewResponse{
		Profile:  NewProfileResponse(o.Profile),
		Attempts: NewAttemptListResponse(o.Attempts),
		Wallet:   NewWalletResponse(o.Wallet),
	}
}
