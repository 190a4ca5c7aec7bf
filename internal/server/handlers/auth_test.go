package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/proxyhub/pkg/api"
)

func setupAuthHandler(t *testing.T, password string) *AuthHandler {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtConfig := JWTConfig{
		Secret:         []byte("test-secret-key"),
		AccessTokenTTL: 15 * time.Minute,
	}

	return NewAuthHandler(logger, jwtConfig, "admin", string(hash))
}

func loginRequest(t *testing.T, body any) *http.Request {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	return httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(data))
}

func TestAuthHandler_Login_Success(t *testing.T) {
	h := setupAuthHandler(t, "correct-password")

	req := loginRequest(t, api.LoginRequest{Username: "admin", Password: "correct-password"})
	w := httptest.NewRecorder()

	h.Login(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), resp.ExpiresIn)

	// Выданный токен проходит валидацию
	claims, err := ValidateAccessToken(JWTConfig{Secret: []byte("test-secret-key")}, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := setupAuthHandler(t, "correct-password")

	tests := []struct {
		name string
		req  api.LoginRequest
	}{
		{
			name: "wrong password",
			req:  api.LoginRequest{Username: "admin", Password: "wrong-password"},
		},
		{
			name: "unknown username",
			req:  api.LoginRequest{Username: "intruder", Password: "correct-password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Login(w, loginRequest(t, tt.req))

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "invalid credentials")
		})
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	h := setupAuthHandler(t, "correct-password")

	tests := []struct {
		name string
		req  api.LoginRequest
	}{
		{
			name: "empty username",
			req:  api.LoginRequest{Password: "correct-password"},
		},
		{
			name: "empty password",
			req:  api.LoginRequest{Username: "admin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Login(w, loginRequest(t, tt.req))

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAuthHandler_Login_InvalidBody(t *testing.T) {
	h := setupAuthHandler(t, "correct-password")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()

	h.Login(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}
