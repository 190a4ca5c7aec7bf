package api

import "time"

// AddUserRequest представляет запрос на создание пользователя
type AddUserRequest struct {
	Username string `json:"username"` // username нового пользователя
}

// CredentialsResponse представляет учетные данные пользователя
type CredentialsResponse struct {
	Username string `json:"username"` // нормализованный username
	UUID     string `json:"uuid"`     // секретный UUID
}

// PlanResponse представляет текущий план пользователя
type PlanResponse struct {
	StartDate         *time.Time `json:"plan_start_date"`          // начало плана, null = без ограничения
	Duration          *int64     `json:"plan_duration"`            // длительность в секундах
	Traffic           *int64     `json:"plan_traffic"`             // лимит трафика в байтах
	TrafficUsage      int64      `json:"plan_traffic_usage"`       // израсходовано
	ExtraTraffic      int64      `json:"plan_extra_traffic"`       // дополнительный лимит
	ExtraTrafficUsage int64      `json:"plan_extra_traffic_usage"` // израсходовано от дополнительного
	Active            bool       `json:"active"`                   // активен ли план сейчас
}

// SetPlanRequest представляет запрос на изменение плана.
// StartDate и Duration задаются вместе или не задаются вовсе.
type SetPlanRequest struct {
	ID                   *int64     `json:"id"`                     // ключ идемпотентности для history
	StartDate            *time.Time `json:"start_date"`             // начало плана
	Duration             *int64     `json:"duration"`               // длительность в секундах
	Traffic              *int64     `json:"traffic"`                // лимит трафика в байтах
	PreserveTrafficUsage bool       `json:"preserve_traffic_usage"` // сохранить накопленное потребление
}

// SetExtraTrafficRequest представляет запрос на дополнительный трафик.
// Отсутствующий ExtraTraffic сбрасывает дополнительный лимит в ноль.
type SetExtraTrafficRequest struct {
	ID           *int64 `json:"id"`            // ключ идемпотентности для history
	ExtraTraffic *int64 `json:"extra_traffic"` // байты, null = сброс
}

// TrafficResponse представляет суммарное потребление трафика
type TrafficResponse struct {
	Uplink   int64 `json:"uplink"`   // байты upload
	Downlink int64 `json:"downlink"` // байты download
}

// UsernamesResponse представляет список всех пользователей
type UsernamesResponse struct {
	Usernames []string `json:"usernames"` // отсортированный список
}

// GenerateResponse представляет результат генерации списка активных пользователей
type GenerateResponse struct {
	Message string `json:"message"` // сообщение о результате
}
