package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Vigno04/Cooplyst-sub000/internal/config"
	"github.com/Vigno04/Cooplyst-sub000/internal/db"
	"github.com/Vigno04/Cooplyst-sub000/internal/server"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	conn, err := db.Open()
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	if sqlDB, err := conn.DB(); err == nil {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second)
	}

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	srv := server.New(conn, cfg, logger)
	log.Printf("cooplyst server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}
