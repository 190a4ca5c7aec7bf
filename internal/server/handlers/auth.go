package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/proxyhub/pkg/api"
)

// AuthHandler обрабатывает запросы авторизации администратора.
// Администратор один и задается в конфигурации: username и bcrypt хеш пароля.
type AuthHandler struct {
	logger        *slog.Logger
	jwtConfig     JWTConfig
	adminUsername string
	adminHash     string
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, jwtConfig JWTConfig, adminUsername, adminPasswordHash string) *AuthHandler {
	return &AuthHandler{
		logger:        logger,
		jwtConfig:     jwtConfig,
		adminUsername: adminUsername,
		adminHash:     adminPasswordHash,
	}
}

// Login обрабатывает POST /api/v1/auth/login
// Аутентификация администратора, возвращает JWT access token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Парсим request body
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode login request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		sendError(h.logger, w, "username and password are required", http.StatusBadRequest)
		return
	}

	// Сравниваем с учетными данными из конфигурации
	if req.Username != h.adminUsername ||
		bcrypt.CompareHashAndPassword([]byte(h.adminHash), []byte(req.Password)) != nil {
		h.logger.WarnContext(ctx, "login failed: invalid credentials",
			slog.String("username", req.Username))
		sendError(h.logger, w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	// Генерируем JWT access token
	accessToken, expiresIn, err := GenerateAccessToken(h.jwtConfig, req.Username)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "admin logged in", slog.String("username", req.Username))

	resp := api.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}
