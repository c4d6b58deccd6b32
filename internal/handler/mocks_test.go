package handler

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
	"github.com/yourusername/quiz-reward-api/internal/service"
	"github.com/yourusername/quiz-reward-api/internal/service/attempt"
)

// fakeSessions - сессии по фиксированным токенам
type fakeSessions struct {
	mu        sync.Mutex
	byToken   map[string]*entity.Session
	signedOut []string
	touched   []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: map[string]*entity.Session{
		"user-token":  {ID: "sess-user", UserID: "11111111-1111-1111-1111-111111111111", Email: "user@example.com"},
		"admin-token": {ID: "sess-admin", UserID: "22222222-2222-2222-2222-222222222222", Email: "admin@example.com"},
	}}
}

func (f *fakeSessions) Authenticate(_ context.Context, token string) (*entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byToken[token]
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) AuthenticateTicket(ctx context.Context, ticket string) (*entity.Session, error) {
	return f.Authenticate(ctx, ticket)
}

func (f *fakeSessions) Touch(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, sessionID)
	return nil
}

func (f *fakeSessions) AuthURL(state string) string {
	return "https://accounts.google.com/o/oauth2/v2/auth?state=" + state
}

func (f *fakeSessions) SignIn(_ context.Context, code string) (*service.SignInResult, error) {
	if code != "good-code" {
		return nil, apperrors.ErrUnauthorized
	}
	return &service.SignInResult{
		Token:     "user-token",
		ExpiresAt: time.Now().Add(time.Hour),
		Profile:   &entity.Profile{ID: "11111111-1111-1111-1111-111111111111", Email: "user@example.com", ReferralCode: "ABC123"},
	}, nil
}

func (f *fakeSessions) SignOut(_ context.Context, session *entity.Session) (*service.SignOutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, session.ID)
	return &service.SignOutResult{RemoteRevoked: false}, nil
}

func (f *fakeSessions) IssueWSTicket(session *entity.Session) (string, error) {
	return "ticket-" + session.ID, nil
}

func (f *fakeSessions) IdleTimeout() time.Duration {
	return 15 * time.Minute
}

// fakeAdmins - администраторы по списку
type fakeAdmins map[string]bool

func (f fakeAdmins) IsAdmin(_ context.Context, userID string) (bool, error) {
	return f[userID], nil
}

type MockQuizCatalog struct{ mock.Mock }

func (m *MockQuizCatalog) ListActive(ctx context.Context) ([]entity.Quiz, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Quiz), args.Error(1)
}

func (m *MockQuizCatalog) GetActiveQuiz(ctx context.Context, id string) (*entity.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizCatalog) ListAll(ctx context.Context) ([]entity.Quiz, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Quiz), args.Error(1)
}

func (m *MockQuizCatalog) GetWithQuestions(ctx context.Context, id string) (*entity.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizCatalog) CreateQuiz(ctx context.Context, in service.QuizInput) (*entity.Quiz, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizCatalog) UpdateQuiz(ctx context.Context, id string, in service.QuizInput) (*entity.Quiz, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizCatalog) SetActive(ctx context.Context, id string, active bool) (*entity.Quiz, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizCatalog) AddQuestions(ctx context.Context, quizID string, questions []entity.Question) (*entity.Quiz, error) {
	args := m.Called(ctx, quizID, questions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

type MockAttemptEngine struct{ mock.Mock }

func (m *MockAttemptEngine) Start(ctx context.Context, userID, quizID string) (*attempt.QuestionView, error) {
	args := m.Called(ctx, userID, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*attempt.QuestionView), args.Error(1)
}

func (m *MockAttemptEngine) Submit(ctx context.Context, userID, questionID, optionID string) (*attempt.AnswerResult, error) {
	args := m.Called(ctx, userID, questionID, optionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*attempt.AnswerResult), args.Error(1)
}

func (m *MockAttemptEngine) State(ctx context.Context, userID string) *attempt.Snapshot {
	args := m.Called(ctx, userID)
	return args.Get(0).(*attempt.Snapshot)
}

func (m *MockAttemptEngine) Abandon(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type MockPaymentProcessor struct{ mock.Mock }

func (m *MockPaymentProcessor) CreateOrder(ctx context.Context, userID string, amount decimal.Decimal) (*service.OrderResult, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.OrderResult), args.Error(1)
}

func (m *MockPaymentProcessor) VerifyPayment(ctx context.Context, userID, orderID, paymentID, signature string) error {
	return m.Called(ctx, userID, orderID, paymentID, signature).Error(0)
}

type MockProfileViewer struct{ mock.Mock }

func (m *MockProfileViewer) GetProfile(ctx context.Context, userID string) (*entity.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *MockProfileViewer) GetOverview(ctx context.Context, userID string) (*service.ProfileOverview, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProfileOverview), args.Error(1)
}

func (m *MockProfileViewer) ListAttempts(ctx context.Context, userID string) ([]entity.AttemptWithQuiz, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]entity.AttemptWithQuiz), args.Error(1)
}

func (m *MockProfileViewer) GetWallet(ctx context.Context, userID string) (service.Wallet, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(service.Wallet), args.Error(1)
}

// fakeReports - отчеты админки поверх fakeAdmins
type fakeReports struct {
	fakeAdmins
	page *service.AttemptPage
	err  error
}

func (f *fakeReports) ListAttempts(_ context.Context, limit, offset int) (*service.AttemptPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.page
	p.Limit, p.Offset = limit, offset
	return &p, nil
}

func (f *fakeReports) ExportAttempts(_ context.Context, format string, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	if format != service.ExportFormatCSV && format != service.ExportFormatXLSX {
		return apperrors.ErrValidation
	}
	_, err := io.WriteString(w, "attempt,user\n")
	return err
}
