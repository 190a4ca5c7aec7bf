package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/proxyhub/internal/config"
	"github.com/iudanet/proxyhub/internal/server/handlers"
	"github.com/iudanet/proxyhub/internal/server/middleware"
	"github.com/iudanet/proxyhub/internal/server/users"
)

// Лимит на попытки логина с одного IP
const (
	loginRateLimit  = 10
	loginRateWindow = 5 * time.Minute
)

// Server объединяет HTTP сервер и роутинг админского API
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
}

// New собирает роутер и HTTP сервер из конфигурации и сервиса пользователей
func New(logger *slog.Logger, cfg *config.Config, service *users.Service, version string) *Server {
	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(cfg.Auth.JWTSecret),
		AccessTokenTTL: cfg.Auth.AccessTokenTTL,
	}

	authHandler := handlers.NewAuthHandler(logger, jwtConfig, cfg.Auth.AdminUsername, cfg.Auth.AdminPasswordHash)
	usersHandler := handlers.NewUsersHandler(logger, service)
	healthHandler := handlers.NewHealthHandler(logger, version)

	authMW := middleware.AuthMiddleware(logger, jwtConfig)
	loginLimitMW := middleware.RateLimitMiddleware(loginRateLimit, loginRateWindow, logger)

	mux := http.NewServeMux()

	// Публичные endpoints
	mux.Handle("POST /api/v1/auth/login", loginLimitMW(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)

	// Админские endpoints, требуют JWT
	mux.Handle("POST /api/v1/users", authMW(http.HandlerFunc(usersHandler.AddUser)))
	mux.Handle("GET /api/v1/users", authMW(http.HandlerFunc(usersHandler.ListUsers)))
	mux.Handle("POST /api/v1/users/generate", authMW(http.HandlerFunc(usersHandler.GenerateList)))
	mux.Handle("DELETE /api/v1/users/{username}", authMW(http.HandlerFunc(usersHandler.DeleteUser)))
	mux.Handle("GET /api/v1/users/{username}/credentials", authMW(http.HandlerFunc(usersHandler.GetCredentials)))
	mux.Handle("GET /api/v1/users/{username}/plan", authMW(http.HandlerFunc(usersHandler.GetPlan)))
	mux.Handle("PUT /api/v1/users/{username}/plan", authMW(http.HandlerFunc(usersHandler.SetPlan)))
	mux.Handle("PUT /api/v1/users/{username}/plan/extra-traffic", authMW(http.HandlerFunc(usersHandler.SetExtraTraffic)))
	mux.Handle("GET /api/v1/users/{username}/traffic", authMW(http.HandlerFunc(usersHandler.GetTraffic)))
	mux.Handle("DELETE /api/v1/users/{username}/traffic", authMW(http.HandlerFunc(usersHandler.ResetTraffic)))

	// Общая цепочка: recovery -> logging -> router
	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(logger)(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	return &Server{
		logger: logger,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Run запускает HTTP сервер и блокируется до его остановки.
// После Shutdown возвращает nil.
func (s *Server) Run() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully останавливает HTTP сервер
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
