package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/iudanet/proxyhub/internal/cleanup"
	"github.com/iudanet/proxyhub/internal/config"
	"github.com/iudanet/proxyhub/internal/server"
	"github.com/iudanet/proxyhub/internal/server/storage/sqlite"
	"github.com/iudanet/proxyhub/internal/server/users"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to a yaml config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Log)
	logger.Info("ProxyHub server starting",
		"version", Version, "git_commit", GitCommit)

	store, err := sqlite.New(context.Background(), cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	service := users.NewService(logger, store, users.Config{
		MaxUsers:       cfg.Users.MaxUsers,
		MaxActiveUsers: cfg.Users.MaxActiveUsers,
		TempPath:       cfg.Users.TempPath,
	})

	srv := server.New(logger, cfg, service, Version)

	coordinator := cleanup.New(logger)
	coordinator.Listen()

	// Останавливаем прием запросов и дожидаемся активных
	coordinator.Add(&cleanup.Task{
		Name:  "http server",
		Async: true,
		Run: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	})

	// Перед выходом оставляем на диске свежий снимок активных пользователей
	coordinator.Add(&cleanup.Task{
		Name:  "users snapshot",
		Async: true,
		Run: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return service.GenerateList(ctx)
		},
	})

	// База закрывается последней, когда остальные задачи завершились
	coordinator.Add(&cleanup.Task{
		Name: "database",
		Run:  store.Close,
	})

	if err := srv.Run(); err != nil {
		return fmt.Errorf("http server failed: %w", err)
	}

	// Сервер остановлен сигналом - ждем пока coordinator закончит дренаж
	coordinator.Wait()
	return nil
}

// newLogger builds the slog logger from the log section of the config
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func printVersion() {
	fmt.Printf("ProxyHub Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
