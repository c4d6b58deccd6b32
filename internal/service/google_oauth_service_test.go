package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-reward-api/internal/config"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
)

const testGoogleClientID = "client-123.apps.googleusercontent.com"

type fakeGoogle struct {
	key     *rsa.PrivateKey
	idToken string
	revoked []string
	server  *httptest.Server
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	g := &fakeGoogle{key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id_token": g.idToken, "access_token": "ya29.access"})
	})
	mux.HandleFunc("/certs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "kid-1",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		g.revoked = append(g.revoked, r.PostForm.Get("token"))
	})
	g.server = httptest.NewServer(mux)
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGoogle) sign(t *testing.T, claims jwt.MapClaims) {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "kid-1"
	signed, err := token.SignedString(g.key)
	require.NoError(t, err)
	g.idToken = signed
}

func (g *fakeGoogle) service(t *testing.T) *GoogleOAuthService {
	t.Helper()
	svc, err := NewGoogleOAuthService(config.GoogleConfig{
		ClientID:       testGoogleClientID,
		ClientSecret:   "secret",
		RedirectOrigin: "https://quiz.example.com",
	})
	require.NoError(t, err)
	svc.tokenURL = g.server.URL + "/token"
	svc.jwksURL = g.server.URL + "/certs"
	svc.revokeURL = g.server.URL + "/revoke"
	return svc
}

func googleClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            testGoogleClientID,
		"sub":            "1234567890",
		"email":          "Ann@Example.com",
		"email_verified": true,
		"name":           "Ann",
		"exp":            time.Now().Add(time.Hour).Unix(),
		"iat":            time.Now().Unix(),
	}
}

func TestGoogleOAuth_AuthCodeURL(t *testing.T) {
	g := newFakeGoogle(t)
	raw := g.service(t).AuthCodeURL("state-1")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, testGoogleClientID, u.Query().Get("client_id"))
	assert.Equal(t, "https://quiz.example.com", u.Query().Get("redirect_uri"))
	assert.Equal(t, "state-1", u.Query().Get("state"))
	assert.Equal(t, "code", u.Query().Get("response_type"))
}

func TestGoogleOAuth_Exchange(t *testing.T) {
	g := newFakeGoogle(t)
	g.sign(t, googleClaims())

	identity, err := g.service(t).Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", identity.Email)
	assert.Equal(t, "Ann", identity.Name)
	assert.Equal(t, "ya29.access", identity.AccessToken)
	assert.Equal(t, UserIDForSubject("1234567890"), identity.UserID)
	assert.Equal(t, identity.UserID, UserIDForSubject("1234567890"), "ID пользователя стабилен между входами")
}

func TestGoogleOAuth_ExchangeRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
		code   string
	}{
		{name: "чужая аудитория", mutate: func(c jwt.MapClaims) { c["aud"] = "other-client" }},
		{name: "чужой издатель", mutate: func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" }},
		{name: "неподтвержденный email", mutate: func(c jwt.MapClaims) { c["email_verified"] = false }},
		{name: "истекший токен", mutate: func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() }},
		{name: "неверный код", code: "bad-code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGoogle(t)
			claims := googleClaims()
			if tt.mutate != nil {
				tt.mutate(claims)
			}
			g.sign(t, claims)
			code := tt.code
			if code == "" {
				code = "good-code"
			}

			_, err := g.service(t).Exchange(context.Background(), code)
			assert.ErrorIs(t, err, ErrGoogleTokenVerificationFailed)
		})
	}
}

func TestGoogleOAuth_ExchangeEmptyCode(t *testing.T) {
	g := newFakeGoogle(t)
	_, err := g.service(t).Exchange(context.Background(), "  ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGoogleOAuth_Revoke(t *testing.T) {
	g := newFakeGoogle(t)
	svc := g.service(t)

	require.NoError(t, svc.Revoke(context.Background(), "ya29.access"))
	assert.Equal(t, []string{"ya29.access"}, g.revoked)

	g.server.Close()
	err := svc.Revoke(context.Background(), "ya29.access")
	assert.ErrorIs(t, err, apperrors.ErrExternalService)
}
