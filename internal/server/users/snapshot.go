package users

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// SnapshotFile - файл со списком активных пользователей,
	// одна строка "<username> <uuid>" на пользователя
	SnapshotFile = "users"

	// MarkerFile содержит UNIX timestamp последней успешной генерации
	// или пустую строку, пока генерация не завершена
	MarkerFile = "last-generate"
)

// GenerateList scans all users and publishes the credentials of those
// with an active plan to the snapshot file. Downstream access-control
// processes read this list to recreate the users on boot.
//
// The marker file is emptied before the scan starts, so external
// watchers can tell a generation is in progress. The snapshot itself is
// written to a scratch file and renamed into place, so readers of the
// previous snapshot never observe a partial write.
func (s *Service) GenerateList(ctx context.Context) error {
	marker := filepath.Join(s.cfg.TempPath, MarkerFile)
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return fmt.Errorf("failed to write marker file: %w", err)
	}

	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	now := time.Now()
	active := 0
	for i := range users {
		if users[i].Plan.ActiveAt(now) {
			fmt.Fprintf(&buf, "%s %s\n", users[i].Username, users[i].UUID)
			active++
		}
	}

	snapshot := filepath.Join(s.cfg.TempPath, SnapshotFile)
	scratch := snapshot + ".tmp"
	if err := os.WriteFile(scratch, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(scratch, snapshot); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	if err := os.WriteFile(marker, []byte(timestamp), 0o644); err != nil {
		return fmt.Errorf("failed to write marker file: %w", err)
	}

	s.logger.Debug("users list generated",
		slog.Int("total", len(users)),
		slog.Int("active", active),
	)
	return nil
}
