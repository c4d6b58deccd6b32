package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
	"github.com/yourusername/quiz-reward-api/internal/service"
)

// Ключи gin-контекста, которые выставляет RequireAuth
const (
	ContextUserID    = "user_id"
	ContextEmail     = "email"
	ContextSessionID = "session_id"
)

// SessionAuthenticator проверяет токен и отмечает активность
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*entity.Session, error)
	Touch(ctx context.Context, sessionID string) error
}

// AdminChecker проверяет членство в admin_users
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	sessions SessionAuthenticator
	admins   AdminChecker
}

// NewAuthMiddleware создает middleware аутентификации
func NewAuthMiddleware(sessions SessionAuthenticator, admins AdminChecker) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, admins: admins}
}

// BearerToken извлекает токен из заголовка Authorization
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// RequireAuth проверяет токен сессии. Каждый аутентифицированный запрос считается активностью.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "error_type": "token_missing"})
			return
		}
		token, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "error_type": "token_format"})
			return
		}

		session, err := m.sessions.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrExpiredToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired", "error_type": "token_expired"})
			case errors.Is(err, apperrors.ErrUnauthorized):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session is not active", "error_type": "session_expired"})
			default:
				log.Errorf("[AuthMiddleware] Ошибка проверки сессии: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			return
		}

		if err := m.sessions.Touch(c.Request.Context(), session.ID); err != nil {
			if errors.Is(err, apperrors.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session is not active", "error_type": "session_expired"})
				return
			}
			// Сессия действительна, потеря одной отметки активности не критична
			log.Warnf("[AuthMiddleware] Не удалось отметить активность сессии %s: %v", session.ID, err)
		}

		c.Set(ContextUserID, session.UserID)
		c.Set(ContextEmail, session.Email)
		c.Set(ContextSessionID, session.ID)
		c.Request = c.Request.WithContext(service.WithSession(c.Request.Context(), session))
		c.Next()
	}
}

// AdminOnly пропускает только пользователей из admin_users. Применяется после RequireAuth.
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
			return
		}

		isAdmin, err := m.admins.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			log.Errorf("[AuthMiddleware] Ошибка проверки прав администратора для %s: %v", userID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access Denied"})
			return
		}
		c.Next()
	}
}
