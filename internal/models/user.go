package models

import "time"

// Credentials представляет учетные данные пользователя для подключения к сервисам
type Credentials struct {
	Username string `json:"username"` // уникальный username (lowercase)
	UUID     string `json:"uuid"`     // секретный UUID пользователя
}

// User представляет пользователя в системе
type User struct {
	Username      string    `json:"username"`           // уникальный username (primary key)
	UUID          string    `json:"uuid"`               // секретный UUID (уникальный)
	CreatedAt     time.Time `json:"user_creation_date"` // время создания
	Plan          Plan      `json:"plan"`               // текущий план пользователя
	TotalUpload   int64     `json:"total_upload"`       // суммарный upload в байтах
	TotalDownload int64     `json:"total_download"`     // суммарный download в байтах
}

// Credentials returns the user's connection credentials.
func (u *User) Credentials() Credentials {
	return Credentials{Username: u.Username, UUID: u.UUID}
}

// Plan represents the time and traffic entitlement attached to a user.
// Nil StartDate/Duration means no time restriction, nil Traffic means
// no traffic restriction. Both fields of the time dimension are always
// set or cleared together.
type Plan struct {
	StartDate         *time.Time `json:"plan_start_date"`          // начало плана (UTC)
	Duration          *int64     `json:"plan_duration"`            // длительность плана в секундах
	Traffic           *int64     `json:"plan_traffic"`             // лимит трафика в байтах
	TrafficUsage      int64      `json:"plan_traffic_usage"`       // израсходовано от лимита
	ExtraTraffic      int64      `json:"plan_extra_traffic"`       // дополнительный лимит трафика
	ExtraTrafficUsage int64      `json:"plan_extra_traffic_usage"` // израсходовано от дополнительного лимита
}

// UnlimitedTime reports whether the plan has no time restriction.
func (p Plan) UnlimitedTime() bool {
	return p.StartDate == nil || p.Duration == nil
}

// UnlimitedTraffic reports whether the plan has no traffic restriction.
func (p Plan) UnlimitedTraffic() bool {
	return p.Traffic == nil
}

// DueDate returns the instant the plan's time dimension expires.
// The second return value is false for unlimited time plans.
func (p Plan) DueDate() (time.Time, bool) {
	if p.UnlimitedTime() {
		return time.Time{}, false
	}
	return p.StartDate.Add(time.Duration(*p.Duration) * time.Second), true
}

// ActiveAt reports whether the plan is active at the given instant.
// A plan is active while it still has both time and traffic: the time
// dimension is unlimited or not yet expired, and the traffic dimension
// is unlimited, under the primary cap, or under the extra cap.
func (p Plan) ActiveAt(now time.Time) bool {
	hasTime := true
	if due, ok := p.DueDate(); ok {
		hasTime = now.Before(due)
	}

	hasTraffic := p.UnlimitedTraffic() ||
		p.TrafficUsage < *p.Traffic ||
		p.ExtraTrafficUsage < p.ExtraTraffic

	return hasTime && hasTraffic
}

// Traffic представляет суммарное потребление трафика пользователя в байтах
type Traffic struct {
	Uplink   int64 `json:"uplink"`   // суммарный upload
	Downlink int64 `json:"downlink"` // суммарный download
}
