package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/iudanet/proxyhub/internal/models"
	"github.com/iudanet/proxyhub/internal/server/storage"
	"github.com/iudanet/proxyhub/internal/validation"
)

// uuidAttempts - количество попыток генерации UUID при коллизиях
const uuidAttempts = 3

// Config holds the service limits and the snapshot directory.
// Zero limits mean unlimited.
type Config struct {
	MaxUsers       int    // максимум пользователей, 0 = без ограничения
	MaxActiveUsers int    // максимум пользователей с активным планом, 0 = без ограничения
	TempPath       string // каталог для файлов users и last-generate
}

// Service владеет бизнес-семантикой таблиц users и history: проверка
// идентичности, жизненный цикл планов, учет трафика и генерация списка
// активных пользователей
type Service struct {
	logger  *slog.Logger
	storage storage.UserStorage
	cfg     Config
}

// NewService creates a new users service
func NewService(logger *slog.Logger, userStorage storage.UserStorage, cfg Config) *Service {
	return &Service{
		logger:  logger,
		storage: userStorage,
		cfg:     cfg,
	}
}

// ValidateCredentials reports whether a user row matches both the
// normalized username and the exact UUID.
func (s *Service) ValidateCredentials(ctx context.Context, creds models.Credentials) (bool, error) {
	username, err := validation.Username(creds.Username)
	if err != nil {
		return false, err
	}

	return s.storage.CredentialsExist(ctx, models.Credentials{
		Username: username,
		UUID:     creds.UUID,
	})
}

// Exists reports whether the user exists, after username validation.
func (s *Service) Exists(ctx context.Context, username string) (bool, error) {
	username, err := validation.Username(username)
	if err != nil {
		return false, err
	}

	return s.storage.UserExists(ctx, username)
}

// AddUser creates the user and returns its generated credentials.
//
// The capacity checks are advisory pre-checks: under concurrent calls
// near the boundary more users than the configured cap can be admitted
// transiently. Identity is authoritative either way - the store's
// constraints map to ErrUserExists / uuid collisions regardless of what
// the pre-checks saw.
func (s *Service) AddUser(ctx context.Context, username string) (models.Credentials, error) {
	username, err := validation.Username(username)
	if err != nil {
		return models.Credentials{}, err
	}

	if s.cfg.MaxUsers > 0 {
		count, err := s.storage.CountUsers(ctx)
		if err != nil {
			return models.Credentials{}, err
		}
		if count >= s.cfg.MaxUsers {
			return models.Credentials{}, fmt.Errorf("%w: %d users", ErrUsersCapacity, count)
		}
	}

	if s.cfg.MaxActiveUsers > 0 {
		count, err := s.ActiveCount(ctx)
		if err != nil {
			return models.Credentials{}, err
		}
		if count >= s.cfg.MaxActiveUsers {
			return models.Credentials{}, fmt.Errorf("%w: %d active users", ErrActiveUsersCapacity, count)
		}
	}

	var creds models.Credentials
	backoff := retry.WithMaxRetries(uuidAttempts-1, retry.NewConstant(time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		creds = models.Credentials{Username: username, UUID: uuid.NewString()}
		if err := s.storage.CreateUser(ctx, creds, time.Now().UTC()); err != nil {
			if errors.Is(err, storage.ErrUUIDTaken) {
				// Коллизия UUID - пробуем с новым значением
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrUUIDTaken) {
			return models.Credentials{}, ErrUUIDOverlap
		}
		return models.Credentials{}, err
	}

	s.logger.Debug("user created", slog.String("username", username))
	return creds, nil
}

// DeleteUser deletes the user. History rows are kept for audit.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	username, err := validation.Username(username)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteUser(ctx, username); err != nil {
		return err
	}

	s.logger.Debug("user deleted", slog.String("username", username))
	return nil
}

// GetCredentials returns the user's credentials
func (s *Service) GetCredentials(ctx context.Context, username string) (*models.Credentials, error) {
	username, err := validation.Username(username)
	if err != nil {
		return nil, err
	}

	return s.storage.GetCredentials(ctx, username)
}

// GetPlan returns the user's current plan
func (s *Service) GetPlan(ctx context.Context, username string) (*models.Plan, error) {
	username, err := validation.Username(username)
	if err != nil {
		return nil, err
	}

	return s.storage.GetPlan(ctx, username)
}

// PlanUpdate describes a SetPlan request. StartDate and Duration must be
// both set or both nil. ID is an optional idempotency key recorded in the
// history table.
type PlanUpdate struct {
	ID                   *int64
	StartDate            *time.Time
	Duration             *time.Duration
	Traffic              *int64
	PreserveTrafficUsage bool
}

// SetPlan updates the user's plan.
//
// The start date is normalized to UTC and truncated to whole seconds.
// The duration must be a positive whole number of seconds. The traffic
// limit, when given, must be positive; recorded traffic usage resets to
// zero unless PreserveTrafficUsage is set. A plan without a traffic
// limit has no usage to preserve, so the flag is ignored in that case.
// The unused extra traffic balance always carries into the new plan.
func (s *Service) SetPlan(ctx context.Context, username string, update PlanUpdate) error {
	username, err := validation.Username(username)
	if err != nil {
		return err
	}

	change := storage.PlanChange{ID: update.ID}

	switch {
	case update.StartDate != nil && update.Duration == nil:
		return fmt.Errorf("%w: the duration must be specified together with the start date", ErrInvalidArgument)
	case update.StartDate == nil && update.Duration != nil:
		return fmt.Errorf("%w: the start date must be specified together with the duration", ErrInvalidArgument)
	case update.StartDate != nil:
		startDate := update.StartDate.UTC().Truncate(time.Second)
		seconds := int64(update.Duration.Truncate(time.Second) / time.Second)
		if seconds <= 0 {
			return fmt.Errorf("%w: the duration must be greater than zero", ErrInvalidArgument)
		}
		change.StartDate = &startDate
		change.Duration = &seconds
	}

	if update.Traffic != nil {
		if *update.Traffic <= 0 {
			return fmt.Errorf("%w: the traffic limit must be greater than zero", ErrInvalidArgument)
		}
		change.Traffic = update.Traffic
		change.PreserveUsage = update.PreserveTrafficUsage
	}

	if err := s.requireUser(ctx, username); err != nil {
		return err
	}

	if err := s.storage.SetPlan(ctx, username, time.Now().UTC(), change); err != nil {
		return err
	}

	s.logger.Info("plan updated",
		slog.String("username", username),
		slog.String("start_date", formatStartDate(change.StartDate)),
		slog.String("traffic", formatTraffic(change.Traffic)),
	)
	return nil
}

// ExtraTrafficUpdate describes a SetPlanExtraTraffic request. A nil
// ExtraTraffic resets the extra allowance to zero.
type ExtraTrafficUpdate struct {
	ID           *int64
	ExtraTraffic *int64
}

// SetPlanExtraTraffic grants extra traffic on top of the primary limit.
// The unused extra balance rolls over into the new grant, floored at
// zero. Extra traffic is meaningless without a primary limit to overflow
// from, so plans with unlimited traffic are rejected.
func (s *Service) SetPlanExtraTraffic(ctx context.Context, username string, update ExtraTrafficUpdate) error {
	username, err := validation.Username(username)
	if err != nil {
		return err
	}

	if update.ExtraTraffic != nil {
		if *update.ExtraTraffic <= 0 {
			return fmt.Errorf("%w: the extra traffic must be greater than zero", ErrInvalidArgument)
		}

		plan, err := s.storage.GetPlan(ctx, username)
		if err != nil {
			return err
		}
		if plan.UnlimitedTraffic() {
			return fmt.Errorf("username %q: %w", username, ErrNoTrafficLimit)
		}
	} else if err := s.requireUser(ctx, username); err != nil {
		return err
	}

	change := storage.ExtraTrafficChange{ID: update.ID, ExtraTraffic: update.ExtraTraffic}
	if err := s.storage.SetExtraTraffic(ctx, username, time.Now().UTC(), change); err != nil {
		return err
	}

	if update.ExtraTraffic != nil {
		s.logger.Info("plan extra traffic appended",
			slog.String("username", username),
			slog.String("extra_traffic", humanize.IBytes(uint64(*update.ExtraTraffic))),
		)
	} else {
		s.logger.Info("plan extra traffic reset", slog.String("username", username))
	}
	return nil
}

// HasActivePlan reports whether the user's plan is currently active
func (s *Service) HasActivePlan(ctx context.Context, username string) (bool, error) {
	plan, err := s.GetPlan(ctx, username)
	if err != nil {
		return false, err
	}

	return plan.ActiveAt(time.Now()), nil
}

// HasUnlimitedTimePlan reports whether the user's plan has no time limit
func (s *Service) HasUnlimitedTimePlan(ctx context.Context, username string) (bool, error) {
	plan, err := s.GetPlan(ctx, username)
	if err != nil {
		return false, err
	}

	return plan.UnlimitedTime(), nil
}

// HasUnlimitedTrafficPlan reports whether the user's plan has no traffic limit
func (s *Service) HasUnlimitedTrafficPlan(ctx context.Context, username string) (bool, error) {
	plan, err := s.GetPlan(ctx, username)
	if err != nil {
		return false, err
	}

	return plan.UnlimitedTraffic(), nil
}

// GetTotalTraffic returns the user's cumulative traffic consumption
func (s *Service) GetTotalTraffic(ctx context.Context, username string) (*models.Traffic, error) {
	username, err := validation.Username(username)
	if err != nil {
		return nil, err
	}

	return s.storage.GetTotalTraffic(ctx, username)
}

// ResetTotalTraffic zeroes the cumulative traffic counters.
// Plan usage is not touched.
func (s *Service) ResetTotalTraffic(ctx context.Context, username string) error {
	username, err := validation.Username(username)
	if err != nil {
		return err
	}

	if err := s.storage.ResetTotalTraffic(ctx, username); err != nil {
		return err
	}

	s.logger.Info("total traffic reset", slog.String("username", username))
	return nil
}

// RecordTrafficUsage appends the user's traffic counters by the given
// byte values in one atomic increment. Called by the traffic metering
// collaborator, not by administrative callers.
func (s *Service) RecordTrafficUsage(ctx context.Context, username string, delta storage.TrafficDelta) error {
	username, err := validation.Username(username)
	if err != nil {
		return err
	}

	return s.storage.AddTraffic(ctx, username, delta)
}

// Count returns the total number of users
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.storage.CountUsers(ctx)
}

// ActiveCount returns the number of users with an active plan.
// O(n): every user's plan is evaluated.
func (s *Service) ActiveCount(ctx context.Context) (int, error) {
	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	count := 0
	for i := range users {
		if users[i].Plan.ActiveAt(now) {
			count++
		}
	}

	return count, nil
}

// Usernames returns all usernames ordered alphabetically
func (s *Service) Usernames(ctx context.Context) ([]string, error) {
	return s.storage.Usernames(ctx)
}

func (s *Service) requireUser(ctx context.Context, username string) error {
	exists, err := s.storage.UserExists(ctx, username)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("username %q: %w", username, storage.ErrUserNotFound)
	}
	return nil
}

func formatStartDate(startDate *time.Time) string {
	if startDate == nil {
		return "unlimited"
	}
	return startDate.Format(time.RFC3339)
}

func formatTraffic(traffic *int64) string {
	if traffic == nil {
		return "unlimited"
	}
	return humanize.IBytes(uint64(*traffic))
}
