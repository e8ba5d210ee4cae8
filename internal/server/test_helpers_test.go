package server

import (
	"io"
	"log/slog"
	"testing"

	"github.com/Vigno04/Cooplyst-sub000/internal/config"
	"github.com/Vigno04/Cooplyst-sub000/internal/db"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	// One connection so every query sees the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return conn
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(newTestDB(t), cfg, logger)
}

func createTestUser(t *testing.T, conn *gorm.DB, username string, admin bool) *db.User {
	t.Helper()
	user := db.User{Username: username, PasswordHash: "x", IsAdmin: admin}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return &user
}

func createTestGame(t *testing.T, conn *gorm.DB, title, status string) *db.Game {
	t.Helper()
	now := timeNowUTC()
	game := db.Game{
		PublicID:        uuid.NewString(),
		Status:          status,
		StatusChangedAt: now,
		ProposedByID:    1,
		Title:           title,
		TitleKey:        titleKey(title),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := conn.Create(&game).Error; err != nil {
		t.Fatalf("failed to create game %s: %v", title, err)
	}
	return &game
}

func intptr(v int) *int {
	return &v
}

func floatptr(v float64) *float64 {
	return &v
}

func countRows(t *testing.T, conn *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var count int64
	q := conn.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}
