package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/pkg/razorpay"
)

// ============================================================================
// Репозитории
// ============================================================================

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *entity.Profile) (*entity.Profile, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Profile), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepository) MarkCompleted(ctx context.Context, orderID, userID, paymentID string) (int64, error) {
	args := m.Called(ctx, orderID, userID, paymentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]entity.Payment, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]entity.Payment), args.Error(1)
}

type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *entity.Attempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) ListByUser(ctx context.Context, userID string) ([]entity.AttemptWithQuiz, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
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
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]entity.AttemptWithQuiz), args.Get(1).(int64), args.Error(2)
}

type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdminRepository) Grant(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) Create(ctx context.Context, quiz *entity.Quiz) error {
	args := m.Called(ctx, quiz)
	return args.Error(0)
}

func (m *MockQuizRepository) GetByID(ctx context.Context, id string) (*entity.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepository) GetWithQuestions(ctx context.Context, id string) (*entity.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepository) ListActive(ctx context.Context) ([]entity.Quiz, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Quiz), args.Error(1)
}

func (m *MockQuizRepository) ListAll(ctx context.Context) ([]entity.Quiz, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Quiz), args.Error(1)
}

func (m *MockQuizRepository) Update(ctx context.Context, quiz *entity.Quiz) error {
	args := m.Called(ctx, quiz)
	return args.Error(0)
}

func (m *MockQuizRepository) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockQuizRepository) IncrementQuestionCount(ctx context.Context, id string, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) CreateBatch(ctx context.Context, questions []entity.Question) error {
	args := m.Called(ctx, questions)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByQuizID(ctx context.Context, quizID string) ([]entity.Question, error) {
	args := m.Called(ctx, quizID)
	return args.Get(0).([]entity.Question), args.Error(1)
}

// ============================================================================
// Внешние сервисы
// ============================================================================

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.test/auth?state=" + state
}

func (m *MockIdentityProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Identity), args.Error(1)
}

func (m *MockIdentityProvider) Revoke(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockPaymentGateway мокает сетевые вызовы шлюза, а подпись проверяет настоящим HMAC
type MockPaymentGateway struct {
	mock.Mock
	secret string
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*razorpay.Order), args.Error(1)
}

func (m *MockPaymentGateway) FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*razorpay.Order), args.Error(1)
}

func (m *MockPaymentGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return razorpay.VerifySignature(m.secret, orderID, paymentID, signature)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendPaymentReceipt(ctx context.Context, receipt PaymentReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}
