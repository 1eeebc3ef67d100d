// Package main creates or updates the admin account configured by ADMIN_EMAIL and ADMIN_PASSWORD.
package main

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventsite/cms/config"
	"github.com/eventsite/cms/internal/auth"
	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/database"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		logger.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{MaxConns: 2}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	hash, err := auth.HashPassword(cfg.Admin.Password)
	if err != nil {
		logger.Fatal("hash password", zap.Error(err))
	}
	user, err := auth.NewRepository(pool).Upsert(ctx, cfg.Admin.Name, cfg.Admin.Email, hash, models.RoleAdmin)
	if err != nil {
		logger.Fatal("upsert admin", zap.Error(err))
	}
	logger.Info("admin ready", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
