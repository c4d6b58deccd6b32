package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/handler/dto"
	"github.com/yourusername/quiz-reward-api/internal/middleware"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
	"github.com/yourusername/quiz-reward-api/internal/service"
)

// SessionManager - операции сессий, которые нужны обработчику входа
type SessionManager interface {
	AuthURL(state string) string
	SignIn(ctx context.Context, code string) (*service.SignInResult, error)
	SignOut(ctx context.Context, session *entity.Session) (*service.SignOutResult, error)
	IssueWSTicket(session *entity.Session) (string, error)
	IdleTimeout() time.Duration
}

// ProfileReader читает профиль пользователя
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*entity.Profile, error)
}

// AdminChecker проверяет права администратора
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// SignOutListener получает уведомление о выходе пользователя
type SignOutListener func(session entity.Session)

// AuthHandler обрабатывает вход и выход через Google
type AuthHandler struct {
	sessions  SessionManager
	profiles  ProfileReader
	admins    AdminChecker
	listeners []SignOutListener
}

// NewAuthHandler создает обработчик аутентификации
func NewAuthHandler(sessions SessionManager, profiles ProfileReader, admins AdminChecker, listeners ...SignOutListener) *AuthHandler {
	return &AuthHandler{
		sessions:  sessions,
		profiles:  profiles,
		admins:    admins,
		listeners: listeners,
	}
}

// CallbackRequest - код авторизации, полученный клиентом от провайдера
type CallbackRequest struct {
	Code string `json:"code" binding:"required"`
}

// GoogleURL возвращает адрес страницы входа Google и state для защиты от CSRF
func (h *AuthHandler) GoogleURL(c *gin.Context) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		handleError(c, err)
		return
	}
	state := hex.EncodeToString(buf)
	c.JSON(http.StatusOK, gin.H{"url": h.sessions.AuthURL(state), "state": state})
}

// GoogleCallback завершает вход по коду авторизации
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.sessions.SignIn(c.Request.Context(), req.Code)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"profile":    dto.NewProfileResponse(result.Profile),
	})
}

// Logout закрывает текущую сессию
func (h *AuthHandler) Logout(c *gin.Context) {
	session, ok := service.SessionFromContext(c.Request.Context())
	if !ok {
		handleError(c, apperrors.ErrUnauthorized)
		return
	}

	result, err := h.sessions.SignOut(c.Request.Context(), session)
	if err != nil {
		handleError(c, err)
		return
	}

	for _, listener := range h.listeners {
		listener(*session)
	}

	log.WithField("user_id", session.UserID).Info("[AuthHandler] Пользователь вышел")
	c.JSON(http.StatusOK, gin.H{"message": "Signed out", "remote_revoked": result.RemoteRevoked})
}

// Activity - heartbeat клиента. Активность уже отмечена в RequireAuth.
func (h *AuthHandler) Activity(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"idle_timeout_seconds": int(h.sessions.IdleTimeout().Seconds())})
}

// Me возвращает профиль текущего пользователя и признак администратора
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	profile, err := h.profiles.GetProfile(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	isAdmin, err := h.admins.IsAdmin(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": dto.NewProfileResponse(profile), "is_admin": isAdmin})
}

// WSTicket выдает тикет для подключения к /ws
func (h *AuthHandler) WSTicket(c *gin.Context) {
	session, ok := service.SessionFromContext(c.Request.Context())
	if !ok {
		handleError(c, apperrors.ErrUnauthorized)
		return
	}
	ticket, err := h.sessions.IssueWSTicket(session)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}
