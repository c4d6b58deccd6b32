package service

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/yourusername/quiz-reward-api/internal/config"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
)

// ErrGoogleTokenVerificationFailed - провайдер вернул невалидный или неподтвержденный id_token
var ErrGoogleTokenVerificationFailed = errors.New("google token verification failed")

// identityNamespace - пространство имен для детерминированных UUID пользователей Google
var identityNamespace = uuid.MustParse("8f14e45f-ceea-467f-a0a5-1c2b7d3e9a10")

const (
	googleAuthURL   = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL  = "https://oauth2.googleapis.com/token"
	googleRevokeURL = "https://oauth2.googleapis.com/revoke"
	googleJWKSURL   = "https://www.googleapis.com/oauth2/v3/certs"
)

// Identity - пользователь, подтвержденный провайдером
type Identity struct {
	UserID      string
	Email       string
	Name        string
	AccessToken string
}

// UserIDForSubject отображает subject провайдера в стабильный UUID пользователя
func UserIDForSubject(sub string) string {
	return uuid.NewSHA1(identityNamespace, []byte("google:"+sub)).String()
}

// GoogleOAuthService реализует вход через Google (authorization code flow)
type GoogleOAuthService struct {
	cfg        config.GoogleConfig
	httpClient *http.Client

	authURL   string
	tokenURL  string
	revokeURL string
	jwksURL   string

	jwksMu     sync.RWMutex
	jwksKeys   map[string]*rsa.PublicKey
	jwksExpiry time.Time
}

// NewGoogleOAuthService создает сервис OAuth
func NewGoogleOAuthService(cfg config.GoogleConfig) (*GoogleOAuthService, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("google client id is required")
	}
	if strings.TrimSpace(cfg.RedirectOrigin) == "" {
		return nil, fmt.Errorf("google redirect origin is required")
	}
	return &GoogleOAuthService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		authURL:    googleAuthURL,
		tokenURL:   googleTokenURL,
		revokeURL:  googleRevokeURL,
		jwksURL:    googleJWKSURL,
	}, nil
}

// AuthCodeURL возвращает адрес страницы входа. Провайдер вернет пользователя на origin приложения.
func (s *GoogleOAuthService) AuthCodeURL(state string) string {
	values := url.Values{}
	values.Set("client_id", s.cfg.ClientID)
	values.Set("redirect_uri", s.cfg.RedirectOrigin)
	values.Set("response_type", "code")
	values.Set("scope", "openid email profile")
	values.Set("state", state)
	values.Set("access_type", "online")
	values.Set("prompt", "select_account")
	return s.authURL + "?" + values.Encode()
}

// Exchange обменивает authorization code на подтвержденную личность пользователя
func (s *GoogleOAuthService) Exchange(ctx context.Context, code string) (*Identity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", apperrors.ErrValidation)
	}

	tokens, err := s.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	info, err := s.verifyIDToken(ctx, tokens.IDToken)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(info.Email))
	if email == "" || !info.EmailVerified {
		return nil, fmt.Errorf("%w: verified email is required", ErrGoogleTokenVerificationFailed)
	}

	return &Identity{
		UserID:      UserIDForSubject(info.Subject),
		Email:       email,
		Name:        strings.TrimSpace(info.Name),
		AccessToken: tokens.AccessToken,
	}, nil
}

// Revoke отзывает токен у провайдера
func (s *GoogleOAuthService) Revoke(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	values := url.Values{}
	values.Set("token", token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revokeURL, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create google revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: google revoke request failed: %v", apperrors.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: google revoke status=%d body=%s", apperrors.ErrExternalService, resp.StatusCode, string(body))
	}
	return nil
}

type googleTokenResponse struct {
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
}

func (s *GoogleOAuthService) exchangeCode(ctx context.Context, code string) (*googleTokenResponse, error) {
	values := url.Values{}
	values.Set("code", code)
	values.Set("client_id", s.cfg.ClientID)
	values.Set("client_secret", s.cfg.ClientSecret)
	values.Set("redirect_uri", s.cfg.RedirectOrigin)
	values.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create google token exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: google token exchange request failed: %v", apperrors.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: google token exchange status=%d body=%s", ErrGoogleTokenVerificationFailed, resp.StatusCode, string(body))
	}

	var payload googleTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse google token exchange response: %w", err)
	}
	if payload.IDToken == "" {
		return nil, fmt.Errorf("%w: id_token not returned by google token exchange", ErrGoogleTokenVerificationFailed)
	}
	return &payload, nil
}

type googleIDTokenClaims struct {
	Email         string      `json:"email"`
	EmailVerified interface{} `json:"email_verified"`
	Name          string      `json:"name"`
	jwt.RegisteredClaims
}

type parsedGoogleTokenInfo struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

type googleJWKSet struct {
	Keys []googleJWK `json:"keys"`
}

type googleJWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (s *GoogleOAuthService) verifyIDToken(ctx context.Context, idToken string) (*parsedGoogleTokenInfo, error) {
	claims := &googleIDTokenClaims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodRS256.Alg()}}
	token, err := parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrGoogleTokenVerificationFailed)
		}
		return s.getGooglePublicKey(ctx, strings.TrimSpace(kid))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGoogleTokenVerificationFailed, err)
	}
	if token == nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrGoogleTokenVerificationFailed)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrGoogleTokenVerificationFailed)
	}
	if claims.Issuer != "accounts.google.com" && claims.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("%w: invalid issuer", ErrGoogleTokenVerificationFailed)
	}
	if !claims.VerifyAudience(s.cfg.ClientID, true) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrGoogleTokenVerificationFailed)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrGoogleTokenVerificationFailed)
	}

	emailVerified, ok := parseGoogleEmailVerifiedClaim(claims.EmailVerified)
	if !ok {
		return nil, fmt.Errorf("%w: invalid email_verified claim", ErrGoogleTokenVerificationFailed)
	}

	return &parsedGoogleTokenInfo{
		Subject:       strings.TrimSpace(claims.Subject),
		Email:         strings.TrimSpace(claims.Email),
		EmailVerified: emailVerified,
		Name:          claims.Name,
	}, nil
}

func parseGoogleEmailVerifiedClaim(v interface{}) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func (s *GoogleOAuthService) getGooglePublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.jwksMu.RLock()
	if key, ok := s.jwksKeys[kid]; ok && time.Now().Before(s.jwksExpiry) {
		s.jwksMu.RUnlock()
		return key, nil
	}
	s.jwksMu.RUnlock()

	if err := s.refreshGoogleJWKS(ctx); err != nil {
		return nil, err
	}

	s.jwksMu.RLock()
	defer s.jwksMu.RUnlock()
	key, ok := s.jwksKeys[kid]
	if !ok || key == nil {
		return nil, fmt.Errorf("%w: jwks key not found", ErrGoogleTokenVerificationFailed)
	}
	return key, nil
}

func (s *GoogleOAuthService) refreshGoogleJWKS(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create google jwks request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to fetch google jwks: %v", apperrors.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: jwks status=%d", apperrors.ErrExternalService, resp.StatusCode)
	}

	var set googleJWKSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to decode google jwks response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if strings.TrimSpace(jwk.Kid) == "" || jwk.Kty != "RSA" {
			continue
		}
		pub, err := parseGoogleRSAPublicKey(jwk)
		if err != nil {
			continue
		}
		keys[jwk.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: no usable rsa keys in google jwks", ErrGoogleTokenVerificationFailed)
	}

	ttl := parseGoogleJWKSMaxAge(resp.Header.Get("Cache-Control"))
	if ttl <= 0 {
		ttl = time.Hour
	}

	s.jwksMu.Lock()
	s.jwksKeys = keys
	s.jwksExpiry = time.Now().Add(ttl)
	s.jwksMu.Unlock()
	return nil
}

func parseGoogleRSAPublicKey(jwk googleJWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, err
	}

	n := new(big.Int).SetBytes(nBytes)
	eInt := 0
	for _, b := range eBytes {
		eInt = eInt<<8 + int(b)
	}
	if n.Sign() <= 0 || eInt <= 0 {
		return nil, fmt.Errorf("invalid rsa jwk")
	}
	return &rsa.PublicKey{N: n, E: eInt}, nil
}

func parseGoogleJWKSMaxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if !strings.HasPrefix(part, "max-age=") {
			continue
		}
		seconds, err := time.ParseDuration(strings.TrimPrefix(part, "max-age=") + "s")
		if err != nil {
			return 0
		}
		if seconds < time.Minute {
			return time.Minute
		}
		return seconds
	}
	return 0
}
