package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
)

const (
	issuer        = "quiz-reward-api"
	usageSession  = "session"
	usageWSTicket = "websocket_auth"
)

var (
	// ErrTokenExpired возвращается для токена с истекшим сроком действия
	ErrTokenExpired = errors.New("token is expired")
	// ErrTokenInvalid возвращается для поддельного, поврежденного или чужого токена
	ErrTokenInvalid = errors.New("token is invalid")
)

// Claims содержит пользовательские поля токена
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"sid"`
	Usage     string `json:"usage"`
	jwt.RegisteredClaims
}

// JWTService выпускает и проверяет токены сессий (HS256)
type JWTService struct {
	secret         []byte
	tokenTTL       time.Duration
	wsTicketExpiry time.Duration
	now            func() time.Time
}

// NewJWTService создает новый сервис JWT
func NewJWTService(secret string, tokenTTL time.Duration) (*JWTService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 bytes")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &JWTService{
		secret:         []byte(secret),
		tokenTTL:       tokenTTL,
		wsTicketExpiry: 60 * time.Second,
		now:            time.Now,
	}, nil
}

// GenerateToken выпускает токен сессии
func (s *JWTService) GenerateToken(userID, email, sessionID string) (string, time.Time, error) {
	return s.sign(userID, email, sessionID, usageSession, s.tokenTTL)
}

// GenerateWSTicket выпускает короткоживущий тикет для подключения к WebSocket.
// Браузер не может передать заголовок Authorization при установке WS соединения.
func (s *JWTService) GenerateWSTicket(userID, sessionID string) (string, error) {
	ticket, _, err := s.sign(userID, "", sessionID, usageWSTicket, s.wsTicketExpiry)
	return ticket, err
}

func (s *JWTService) sign(userID, email, sessionID, usage string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		SessionID: sessionID,
		Usage:     usage,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken проверяет токен сессии и возвращает его claims
func (s *JWTService) ParseToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, usageSession)
}

// ParseWSTicket проверяет тикет WebSocket
func (s *JWTService) ParseWSTicket(ticket string) (*Claims, error) {
	return s.parse(ticket, usageWSTicket)
}

func (s *JWTService) parse(tokenString, usage string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		log.Debugf("[JWT] Отклонен токен: %v", err)
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.Usage != usage || claims.UserID == "" || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
