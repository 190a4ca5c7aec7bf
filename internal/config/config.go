package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Users    UsersConfig
	Auth     AuthConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds SQLite database configuration
type DatabaseConfig struct {
	Path string
}

// UsersConfig holds the user ledger limits and snapshot directory
type UsersConfig struct {
	MaxUsers       int    // 0 = unlimited
	MaxActiveUsers int    // 0 = unlimited
	TempPath       string // каталог для файлов users и last-generate
}

// AuthConfig holds admin API authentication configuration
type AuthConfig struct {
	AdminUsername     string
	AdminPasswordHash string // bcrypt hash
	JWTSecret         string
	AccessTokenTTL    time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text или json
}

// Load reads configuration from the given yaml file (optional) and
// PROXYHUB_* environment variables, on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("proxyhub")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Users: UsersConfig{
			MaxUsers:       v.GetInt("users.max_users"),
			MaxActiveUsers: v.GetInt("users.max_active_users"),
			TempPath:       v.GetString("users.temp_path"),
		},
		Auth: AuthConfig{
			AdminUsername:     v.GetString("auth.admin_username"),
			AdminPasswordHash: v.GetString("auth.admin_password_hash"),
			JWTSecret:         v.GetString("auth.jwt_secret"),
			AccessTokenTTL:    v.GetDuration("auth.access_token_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.path", "proxyhub.db")

	v.SetDefault("users.max_users", 0)
	v.SetDefault("users.max_active_users", 0)
	v.SetDefault("users.temp_path", "/tmp/proxyhub")

	v.SetDefault("auth.access_token_ttl", 15*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func (c *Config) validate() error {
	if c.Users.MaxUsers < 0 {
		return fmt.Errorf("users.max_users must not be negative")
	}
	if c.Users.MaxActiveUsers < 0 {
		return fmt.Errorf("users.max_active_users must not be negative")
	}
	if c.Users.TempPath == "" {
		return fmt.Errorf("users.temp_path is required")
	}
	return nil
}
