package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/domain/repository"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
	"github.com/yourusername/quiz-reward-api/pkg/auth"
)

const (
	referralCodeAttempts = 3
	remoteRevokeTimeout  = 5 * time.Second
)

// IdentityProvider - внешний провайдер входа
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
	Revoke(ctx context.Context, token string) error
}

// SignInResult - результат успешного входа
type SignInResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *entity.Profile `json:"profile"`
}

// SignOutResult сообщает, удалось ли отозвать сессию у провайдера.
// Локальная сессия удаляется в любом случае.
type SignOutResult struct {
	RemoteRevoked bool `json:"remote_revoked"`
}

// SessionService управляет сессиями пользователей
type SessionService struct {
	provider    IdentityProvider
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	jwtService  *auth.JWTService
	idleTimeout time.Duration
	now         func() time.Time
}

// NewSessionService создает сервис сессий
func NewSessionService(
	provider IdentityProvider,
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	jwtService *auth.JWTService,
	idleTimeout time.Duration,
) *SessionService {
	if idleTimeout <= 0 {
		idleTimeout = 15 * time.Minute
	}
	return &SessionService{
		provider:    provider,
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		jwtService:  jwtService,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// IdleTimeout возвращает окно бездействия
func (s *SessionService) IdleTimeout() time.Duration {
	return s.idleTimeout
}

// retention - сколько хранить запись сессии в Redis. Запись живет дольше окна бездействия,
// чтобы IdleDetector успел увидеть ее и уведомить подписчиков о выходе.
func (s *SessionService) retention() time.Duration {
	return 2 * s.idleTimeout
}

// AuthURL возвращает адрес входа у провайдера
func (s *SessionService) AuthURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// SignIn завершает вход: проверяет код у провайдера, гарантирует профиль и открывает сессию
func (s *SessionService) SignIn(ctx context.Context, code string) (*SignInResult, error) {
	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrExternalService) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}

	profile, err := s.EnsureProfile(ctx, identity.UserID, identity.Email, identity.Name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &entity.Session{
		ID:            uuid.NewString(),
		UserID:        identity.UserID,
		Email:         identity.Email,
		ProviderToken: identity.AccessToken,
		CreatedAt:     now,
		LastActivity:  now,
	}
	if err := s.sessionRepo.Create(ctx, session, s.retention()); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, expiresAt, err := s.jwtService.GenerateToken(identity.UserID, identity.Email, session.ID)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": identity.UserID, "session_id": session.ID}).Info("[SessionService] Пользователь вошел")
	return &SignInResult{Token: token, ExpiresAt: expiresAt, Profile: profile}, nil
}

// EnsureProfile создает профиль или восстанавливает недостающие поля.
// Повторный вызов для той же личности не создает вторую запись.
func (s *SessionService) EnsureProfile(ctx context.Context, userID, email, name string) (*entity.Profile, error) {
	if userID == "" || email == "" {
		return nil, fmt.Errorf("%w: user id and email are required", apperrors.ErrValidation)
	}
	if name == "" {
		name = entity.DefaultName(email)
	}

	var lastErr error
	for i := 0; i < referralCodeAttempts; i++ {
		code, err := entity.NewReferralCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate referral code: %w", err)
		}
		profile, err := s.profileRepo.Upsert(ctx, &entity.Profile{
			ID:           userID,
			Email:        email,
			Name:         name,
			ReferralCode: code,
		})
		if err == nil {
			return profile, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("failed to upsert profile: %w", err)
		}
		lastErr = err
		log.Warnf("[SessionService] Коллизия реферального кода для пользователя %s, повтор", userID)
	}
	return nil, fmt.Errorf("failed to allocate referral code: %w", lastErr)
}

// Authenticate проверяет токен и активность сессии
func (s *SessionService) Authenticate(ctx context.Context, token string) (*entity.Session, error) {
	claims, err := s.jwtService.ParseToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.ErrExpiredToken
		}
		return nil, apperrors.ErrUnauthorized
	}
	return s.CheckSession(ctx, claims.SessionID, claims.UserID)
}

// IssueWSTicket выдает короткоживущий тикет для подключения к /ws.
// Браузер не может передать заголовок Authorization при открытии WebSocket.
func (s *SessionService) IssueWSTicket(session *entity.Session) (string, error) {
	return s.jwtService.GenerateWSTicket(session.UserID, session.ID)
}

// AuthenticateTicket проверяет WS-тикет и сессию, для которой он выдан
func (s *SessionService) AuthenticateTicket(ctx context.Context, ticket string) (*entity.Session, error) {
	claims, err := s.jwtService.ParseWSTicket(ticket)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	return s.CheckSession(ctx, claims.SessionID, claims.UserID)
}

// CheckSession проверяет, что сессия открыта, принадлежит пользователю и не простаивает
func (s *SessionService) CheckSession(ctx context.Context, sessionID, userID string) (*entity.Session, error) {
	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: session is closed", apperrors.ErrUnauthorized)
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, apperrors.ErrUnauthorized
	}
	if session.IdleFor(s.now()) > s.idleTimeout {
		// Ключ еще не истек в Redis, но окно уже закрыто
		if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
			log.Warnf("[SessionService] Не удалось удалить неактивную сессию %s: %v", session.ID, err)
		}
		return nil, fmt.Errorf("%w: session expired due to inactivity", apperrors.ErrUnauthorized)
	}
	return session, nil
}

// Touch отмечает активность пользователя и сдвигает окно бездействия
func (s *SessionService) Touch(ctx context.Context, sessionID string) error {
	err := s.sessionRepo.Touch(ctx, sessionID, s.now(), s.retention())
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.ErrUnauthorized
	}
	return err
}

// SignOut закрывает сессию. Отзыв у провайдера - best-effort: при его ошибке
// локальная сессия все равно удаляется, а результат сообщает RemoteRevoked=false.
func (s *SessionService) SignOut(ctx context.Context, session *entity.Session) (*SignOutResult, error) {
	result := &SignOutResult{RemoteRevoked: true}

	if session.ProviderToken != "" {
		revokeCtx, cancel := context.WithTimeout(ctx, remoteRevokeTimeout)
		err := s.provider.Revoke(revokeCtx, session.ProviderToken)
		cancel()
		if err != nil {
			result.RemoteRevoked = false
			log.WithFields(log.Fields{"user_id": session.UserID, "session_id": session.ID}).
				Warnf("[SessionService] Не удалось отозвать сессию у провайдера: %v", err)
		}
	}

	if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("failed to delete session: %w", err)
	}
	return result, nil
}

// ExpireIdle закрывает сессии без активности дольше окна бездействия и возвращает их
func (s *SessionService) ExpireIdle(ctx context.Context) ([]entity.Session, error) {
	idle, err := s.sessionRepo.ListIdle(ctx, s.now().Add(-s.idleTimeout))
	if err != nil {
		return nil, err
	}
	expired := make([]entity.Session, 0, len(idle))
	for i := range idle {
		session := idle[i]
		if _, err := s.SignOut(ctx, &session); err != nil {
			log.Errorf("[SessionService] Ошибка автоматического выхода для сессии %s: %v", session.ID, err)
			continue
		}
		expired = append(expired, session)
	}
	return expired, nil
}

type sessionCtxKey struct{}

// WithSession кладет сессию в контекст запроса
func WithSession(ctx context.Context, session *entity.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, session)
}

// SessionFromContext возвращает сессию текущего запроса
func SessionFromContext(ctx context.Context) (*entity.Session, bool) {
	session, ok := ctx.Value(sessionCtxKey{}).(*entity.Session)
	return session, ok && session != nil
}
