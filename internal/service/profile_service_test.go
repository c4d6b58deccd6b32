package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
)

func sampleAttempts() []entity.AttemptWithQuiz {
	completed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []entity.AttemptWithQuiz{
		{
			Attempt:      entity.Attempt{ID: "a2", UserID: "u1", QuizID: "q1", Score: 50, EarnedAmount: 50, TotalQuestions: 2, CorrectAnswers: 1, CompletedAt: completed.Add(time.Hour)},
			QuizTitle:    "=Формула",
			RewardAmount: 100,
		},
		{
			Attempt:      entity.Attempt{ID: "a1", UserID: "u1", QuizID: "q1", Score: 100, EarnedAmount: 100, TotalQuestions: 2, CorrectAnswers: 2, CompletedAt: completed},
			QuizTitle:    "Основы Go",
			RewardAmount: 100,
		},
	}
}

func TestProfileService_GetOverview(t *testing.T) {
	profiles := new(MockProfileRepository)
	attempts := new(MockAttemptRepository)
	svc := NewProfileService(profiles, attempts)

	profiles.On("GetByID", mock.Anything, "u1").Return(&entity.Profile{ID: "u1", Email: "ann@example.com", ReferralCode: "ABC123"}, nil).Once()
	attempts.On("ListByUser", mock.Anything, "u1").Return(sampleAttempts(), nil).Once()
	attempts.On("SumEarned", mock.Anything, "u1").Return(int64(150), nil).Once()

	overview, err := svc.GetOverview(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", overview.Profile.ReferralCode)
	assert.Len(t, overview.Attempts, 2)
	assert.Equal(t, Wallet{TotalEarned: 150, AttemptsCount: 2}, overview.Wallet)
}

func TestProfileService_GetOverviewFailsOnAnyError(t *testing.T) {
	profiles := new(MockProfileRepository)
	attempts := new(MockAttemptRepository)
	svc := NewProfileService(profiles, attempts)

	profiles.On("GetByID", mock.Anything, "u1").Return(nil, apperrors.ErrNotFound).Maybe()
	attempts.On("ListByUser", mock.Anything, "u1").Return(sampleAttempts(), nil).Maybe()
	attempts.On("SumEarned", mock.Anything, "u1").Return(int64(0), nil).Maybe()

	_, err := svc.GetOverview(context.Background(), "u1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProfileService_GetWalletCountsWithoutHistory(t *testing.T) {
	attempts := new(MockAttemptRepository)
	svc := NewProfileService(new(MockProfileRepository), attempts)
	attempts.On("SumEarned", mock.Anything, "u1").Return(int64(150), nil).Once()
	attempts.On("CountByUser", mock.Anything, "u1").Return(int64(2), nil).Once()

	wallet, err := svc.GetWallet(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Wallet{TotalEarned: 150, AttemptsCount: 2}, wallet)
	attempts.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything)

	attempts.On("SumEarned", mock.Anything, "u2").Return(int64(0), nil).Once()
	attempts.On("CountByUser", mock.Anything, "u2").Return(int64(0), errors.New("db down")).Once()
	_, err = svc.GetWallet(context.Background(), "u2")
	assert.Error(t, err)
}

func TestProfileService_ListAttemptsNeverNil(t *testing.T) {
	attempts := new(MockAttemptRepository)
	svc := NewProfileService(new(MockProfileRepository), attempts)
	attempts.On("ListByUser", mock.Anything, "u1").Return(nil, nil).Once()

	list, err := svc.ListAttempts(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestAdminService_ListAttemptsClampsLimit(t *testing.T) {
	attempts := new(MockAttemptRepository)
	svc := NewAdminService(new(MockAdminRepository), attempts, "INR")
	attempts.On("ListAll", mock.Anything, maxListLimit, 0).Return(sampleAttempts(), int64(2), nil).Once()

	page, err := svc.ListAttempts(context.Background(), 5000, -3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, maxListLimit, page.Limit)
	assert.Zero(t, page.Offset)
}

func TestAdminService_Grant(t *testing.T) {
	admins := new(MockAdminRepository)
	svc := NewAdminService(admins, new(MockAttemptRepository), "INR")

	assert.ErrorIs(t, svc.Grant(context.Background(), ""), apperrors.ErrValidation)

	admins.On("Grant", mock.Anything, "u1").Return(nil).Once()
	require.NoError(t, svc.Grant(context.Background(), "u1"))
	admins.AssertExpectations(t)
}

func TestAdminService_ExportCSV(t *testing.T) {
	attempts := new(MockAttemptRepository)
	svc := NewAdminService(new(MockAdminRepository), attempts, "INR")
	attempts.On("ListAll", mock.Anything, exportPageSize, 0).Return(sampleAttempts(), int64(2), nil).Once()

	var buf bytes.Buffer
	require.NoError(t, svc.ExportAttempts(context.Background(), ExportFormatCSV, &buf))

	body := strings.TrimPrefix(buf.String(), "\ufeff")
	rows, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, "'=Формула", rows[1][2], "Формулы в названиях экранируются")
	assert.Equal(t, "0.50 INR", rows[1][6])
	assert.Equal(t, "2024-03-01T12:00:00Z", rows[2][7])
}

func TestAdminService_ExportXLSX(t *testing.T) {
	attempts := new(MockAttemptRepository)
	svc := NewAdminService(new(MockAdminRepository), attempts, "INR")
	attempts.On("ListAll", mock.Anything, exportPageSize, 0).Return(sampleAttempts(), int64(2), nil).Once()

	var buf bytes.Buffer
	require.NoError(t, svc.ExportAttempts(context.Background(), ExportFormatXLSX, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Попытки")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Квиз", rows[0][2])
	assert.Equal(t, "a2", rows[1][0])
	assert.Equal(t, "Основы Go", rows[2][2])
}

func TestAdminService_ExportErrors(t *testing.T) {
	attempts := new(MockAttemptRepository)
	svc := NewAdminService(new(MockAdminRepository), attempts, "INR")

	var buf bytes.Buffer
	assert.ErrorIs(t, svc.ExportAttempts(context.Background(), "pdf", &buf), apperrors.ErrValidation)

	attempts.On("ListAll", mock.Anything, exportPageSize, 0).Return(nil, int64(0), errors.New("db down")).Once()
	assert.Error(t, svc.ExportAttempts(context.Background(), ExportFormatCSV, &buf))
}
