package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "modernc.org/sqlite/lib"

	"github.com/iudanet/proxyhub/internal/models"
	"github.com/iudanet/proxyhub/internal/server/storage"
)

// CreateUser inserts a new user row with empty plan and traffic counters
func (s *Storage) CreateUser(ctx context.Context, creds models.Credentials, createdAt time.Time) error {
	query := `
		INSERT INTO users (username, uuid, user_creation_date)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, creds.Username, creds.UUID, createdAt)
	if err != nil {
		// Классифицируем нарушение ограничения: primary key означает
		// занятый username, unique - коллизию сгенерированного UUID
		switch constraintCode(err) {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("username %q: %w", creds.Username, storage.ErrUserExists)
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return storage.ErrUUIDTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// DeleteUser deletes user by username
func (s *Storage) DeleteUser(ctx context.Context, username string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("username %q: %w", username, storage.ErrUserNotFound)
	}

	return nil
}

// UserExists reports whether a user row exists
func (s *Storage) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// CredentialsExist reports whether a row matches both username and UUID.
// The UUID comparison is exact and case-sensitive.
func (s *Storage) CredentialsExist(ctx context.Context, creds models.Credentials) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = ? AND uuid = ?)`,
		creds.Username, creds.UUID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check credentials: %w", err)
	}

	return exists, nil
}

// GetCredentials retrieves the user's credentials
func (s *Storage) GetCredentials(ctx context.Context, username string) (*models.Credentials, error) {
	creds := &models.Credentials{}
	err := s.db.QueryRowContext(ctx,
		`SELECT username, uuid FROM users WHERE username = ?`, username,
	).Scan(&creds.Username, &creds.UUID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("username %q: %w", username, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	return creds, nil
}

// GetPlan retrieves the user's current plan
func (s *Storage) GetPlan(ctx context.Context, username string) (*models.Plan, error) {
	query := `
		SELECT
			plan_start_date,
			plan_duration,
			plan_traffic,
			plan_traffic_usage,
			plan_extra_traffic,
			plan_extra_traffic_usage
		FROM users
		WHERE username = ?
	`

	plan := &models.Plan{}
	var startDate sql.NullTime
	var duration, traffic sql.NullInt64

	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&startDate,
		&duration,
		&traffic,
		&plan.TrafficUsage,
		&plan.ExtraTraffic,
		&plan.ExtraTrafficUsage,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("username %q: %w", username, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	if startDate.Valid {
		t := startDate.Time.UTC()
		plan.StartDate = &t
	}
	if duration.Valid {
		plan.Duration = &duration.Int64
	}
	if traffic.Valid {
		plan.Traffic = &traffic.Int64
	}

	return plan, nil
}

// SetPlan inserts the history row and updates the live plan row in one
// transaction. A reader never observes one without the other. The unused
// extra traffic balance (never negative) is carried into the new plan
// generation with its usage zeroed.
func (s *Storage) SetPlan(ctx context.Context, username string, now time.Time, change storage.PlanChange) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertHistory(ctx, tx, historyRow{
			id:        change.ID,
			date:      now,
			username:  username,
			startDate: change.StartDate,
			duration:  change.Duration,
			traffic:   change.Traffic,
		}); err != nil {
			return err
		}

		query := `
			UPDATE users
			SET
				plan_start_date = ?,
				plan_duration = ?,
				plan_traffic = ?,
				plan_traffic_usage = CASE WHEN ? THEN plan_traffic_usage ELSE 0 END,
				plan_extra_traffic = MAX(plan_extra_traffic - plan_extra_traffic_usage, 0),
				plan_extra_traffic_usage = 0
			WHERE username = ?
		`

		result, err := tx.ExecContext(ctx, query,
			nullTime(change.StartDate),
			nullInt(change.Duration),
			nullInt(change.Traffic),
			change.PreserveUsage,
			username,
		)
		if err != nil {
			return fmt.Errorf("failed to update plan: %w", err)
		}

		return requireRow(result, username)
	})
}

// SetExtraTraffic inserts the history row and updates the extra traffic
// allowance in one transaction. The new allowance is the unused balance
// plus the granted value, floored at zero; a nil grant resets it to zero.
func (s *Storage) SetExtraTraffic(ctx context.Context, username string, now time.Time, change storage.ExtraTrafficChange) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertHistory(ctx, tx, historyRow{
			id:           change.ID,
			date:         now,
			username:     username,
			extraTraffic: change.ExtraTraffic,
		}); err != nil {
			return err
		}

		// NULL + x дает NULL, поэтому сброс (nil) схлопывается в 0 через COALESCE
		query := `
			UPDATE users
			SET
				plan_extra_traffic = MAX(COALESCE(plan_extra_traffic + ? - plan_extra_traffic_usage, 0), 0),
				plan_extra_traffic_usage = 0
			WHERE username = ?
		`

		result, err := tx.ExecContext(ctx, query, nullInt(change.ExtraTraffic), username)
		if err != nil {
			return fmt.Errorf("failed to update extra traffic: %w", err)
		}

		return requireRow(result, username)
	})
}

// historyRow is one append-only audit record of a plan mutation.
// Untouched plan dimensions stay NULL.
type historyRow struct {
	id           *int64
	date         time.Time
	username     string
	startDate    *time.Time
	duration     *int64
	traffic      *int64
	extraTraffic *int64
}

func insertHistory(ctx context.Context, tx *sql.Tx, row historyRow) error {
	query := `
		INSERT INTO history (id, date, username, plan_start_date, plan_duration, plan_traffic, plan_extra_traffic)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(ctx, query,
		nullInt(row.id),
		row.date,
		row.username,
		nullTime(row.startDate),
		nullInt(row.duration),
		nullInt(row.traffic),
		nullInt(row.extraTraffic),
	)
	if err != nil {
		if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return fmt.Errorf("id %d: %w", *row.id, storage.ErrDuplicatedPlanID)
		}
		return fmt.Errorf("failed to insert history row: %w", err)
	}

	return nil
}

// AddTraffic atomically increments the four traffic counters
func (s *Storage) AddTraffic(ctx context.Context, username string, delta storage.TrafficDelta) error {
	query := `
		UPDATE users
		SET
			plan_traffic_usage = plan_traffic_usage + ?,
			plan_extra_traffic_usage = plan_extra_traffic_usage + ?,
			total_upload = total_upload + ?,
			total_download = total_download + ?
		WHERE username = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		delta.TrafficUsage,
		delta.ExtraTrafficUsage,
		delta.Upload,
		delta.Download,
		username,
	)
	if err != nil {
		return fmt.Errorf("failed to add traffic: %w", err)
	}

	return requireRow(result, username)
}

// GetTotalTraffic retrieves the cumulative upload/download counters
func (s *Storage) GetTotalTraffic(ctx context.Context, username string) (*models.Traffic, error) {
	traffic := &models.Traffic{}
	err := s.db.QueryRowContext(ctx,
		`SELECT total_upload, total_download FROM users WHERE username = ?`, username,
	).Scan(&traffic.Uplink, &traffic.Downlink)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("username %q: %w", username, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get total traffic: %w", err)
	}

	return traffic, nil
}

// ResetTotalTraffic zeroes the cumulative upload/download counters
func (s *Storage) ResetTotalTraffic(ctx context.Context, username string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET total_upload = 0, total_download = 0 WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("failed to reset total traffic: %w", err)
	}

	return requireRow(result, username)
}

// ListUsers returns all user rows with their plans, ordered by username
func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT
			username,
			uuid,
			user_creation_date,
			plan_start_date,
			plan_duration,
			plan_traffic,
			plan_traffic_usage,
			plan_extra_traffic,
			plan_extra_traffic_usage,
			total_upload,
			total_download
		FROM users
		ORDER BY username
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var startDate sql.NullTime
		var duration, traffic sql.NullInt64

		if err := rows.Scan(
			&user.Username,
			&user.UUID,
			&user.CreatedAt,
			&startDate,
			&duration,
			&traffic,
			&user.Plan.TrafficUsage,
			&user.Plan.ExtraTraffic,
			&user.Plan.ExtraTrafficUsage,
			&user.TotalUpload,
			&user.TotalDownload,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}

		if startDate.Valid {
			t := startDate.Time.UTC()
			user.Plan.StartDate = &t
		}
		if duration.Valid {
			user.Plan.Duration = &duration.Int64
		}
		if traffic.Valid {
			user.Plan.Traffic = &traffic.Int64
		}

		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	return users, nil
}

// Usernames returns all usernames ordered alphabetically
func (s *Storage) Usernames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list usernames: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}
		usernames = append(usernames, username)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usernames: %w", err)
	}

	return usernames, nil
}

// CountUsers returns the total number of user rows
func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	return count, nil
}

// requireRow converts "0 rows affected" into ErrUserNotFound
func requireRow(result sql.Result, username string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("username %q: %w", username, storage.ErrUserNotFound)
	}

	return nil
}

// nullInt converts an optional int64 into a driver-friendly value
func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// nullTime converts an optional time.Time into a driver-friendly value
func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}
