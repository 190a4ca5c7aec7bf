package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/proxyhub/internal/server/storage"
	"github.com/iudanet/proxyhub/internal/server/users"
	"github.com/iudanet/proxyhub/internal/validation"
	"github.com/iudanet/proxyhub/pkg/api"
)

// UsersHandler обрабатывает административные запросы к реестру пользователей
type UsersHandler struct {
	logger  *slog.Logger
	service *users.Service
}

// NewUsersHandler создает новый handler для управления пользователями
func NewUsersHandler(logger *slog.Logger, service *users.Service) *UsersHandler {
	return &UsersHandler{
		logger:  logger,
		service: service,
	}
}

// AddUser обрабатывает POST /api/v1/users
// Создание пользователя, возвращает сгенерированные учетные данные
func (h *UsersHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.AddUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode add user request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	creds, err := h.service.AddUser(ctx, req.Username)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	resp := api.CredentialsResponse{
		Username: creds.Username,
		UUID:     creds.UUID,
	}

	sendJSON(h.logger, w, resp, http.StatusCreated)
}

// ListUsers обрабатывает GET /api/v1/users
// Список всех username в алфавитном порядке
func (h *UsersHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	usernames, err := h.service.Usernames(r.Context())
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	sendJSON(h.logger, w, api.UsernamesResponse{Usernames: usernames}, http.StatusOK)
}

// DeleteUser обрабатывает DELETE /api/v1/users/{username}
func (h *UsersHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), r.PathValue("username")); err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetCredentials обрабатывает GET /api/v1/users/{username}/credentials
func (h *UsersHandler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.service.GetCredentials(r.Context(), r.PathValue("username"))
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	resp := api.CredentialsResponse{
		Username: creds.Username,
		UUID:     creds.UUID,
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// GetPlan обрабатывает GET /api/v1/users/{username}/plan
func (h *UsersHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.GetPlan(r.Context(), r.PathValue("username"))
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	resp := api.PlanResponse{
		StartDate:         plan.StartDate,
		Duration:          plan.Duration,
		Traffic:           plan.Traffic,
		TrafficUsage:      plan.TrafficUsage,
		ExtraTraffic:      plan.ExtraTraffic,
		ExtraTrafficUsage: plan.ExtraTrafficUsage,
		Active:            plan.ActiveAt(time.Now()),
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// SetPlan обрабатывает PUT /api/v1/users/{username}/plan
func (h *UsersHandler) SetPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SetPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode set plan request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	update := users.PlanUpdate{
		ID:                   req.ID,
		StartDate:            req.StartDate,
		Traffic:              req.Traffic,
		PreserveTrafficUsage: req.PreserveTrafficUsage,
	}
	if req.Duration != nil {
		duration := time.Duration(*req.Duration) * time.Second
		update.Duration = &duration
	}

	if err := h.service.SetPlan(ctx, r.PathValue("username"), update); err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetExtraTraffic обрабатывает PUT /api/v1/users/{username}/plan/extra-traffic
func (h *UsersHandler) SetExtraTraffic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SetExtraTrafficRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode extra traffic request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	update := users.ExtraTrafficUpdate{ID: req.ID, ExtraTraffic: req.ExtraTraffic}
	if err := h.service.SetPlanExtraTraffic(ctx, r.PathValue("username"), update); err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetTraffic обрабатывает GET /api/v1/users/{username}/traffic
func (h *UsersHandler) GetTraffic(w http.ResponseWriter, r *http.Request) {
	traffic, err := h.service.GetTotalTraffic(r.Context(), r.PathValue("username"))
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	resp := api.TrafficResponse{
		Uplink:   traffic.Uplink,
		Downlink: traffic.Downlink,
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// ResetTraffic обрабатывает DELETE /api/v1/users/{username}/traffic
// Сбрасывает суммарные счетчики трафика, не трогая потребление плана
func (h *UsersHandler) ResetTraffic(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetTotalTraffic(r.Context(), r.PathValue("username")); err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GenerateList обрабатывает POST /api/v1/users/generate
// Генерирует список активных пользователей на диске
func (h *UsersHandler) GenerateList(w http.ResponseWriter, r *http.Request) {
	if err := h.service.GenerateList(r.Context()); err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	sendJSON(h.logger, w, api.GenerateResponse{Message: "users list generated"}, http.StatusOK)
}

// sendServiceError отображает закрытую таксономию ошибок сервиса на HTTP статусы
func (h *UsersHandler) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, validation.ErrInvalidUsername),
		errors.Is(err, users.ErrInvalidArgument):
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)

	case errors.Is(err, storage.ErrUserNotFound):
		sendError(h.logger, w, err.Error(), http.StatusNotFound)

	case errors.Is(err, storage.ErrUserExists),
		errors.Is(err, storage.ErrDuplicatedPlanID),
		errors.Is(err, users.ErrNoTrafficLimit):
		sendError(h.logger, w, err.Error(), http.StatusConflict)

	case errors.Is(err, users.ErrUsersCapacity),
		errors.Is(err, users.ErrActiveUsersCapacity):
		sendError(h.logger, w, err.Error(), http.StatusForbidden)
	case errors.Is(err, users.ErrUUIDOverlap):
		// Коллизия uuid случайна, клиент может просто повторить запрос
		sendError(h.logger, w, err.Error(), http.StatusServiceUnavailable)

	default:
		// Неизвестные ошибки хранилища не маскируем в деталях - логируем
		// целиком, наружу отдаем generic ответ
		h.logger.ErrorContext(ctx, "users request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
	}
}
