// Package main runs the background job worker that mirrors uploaded media to S3.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventsite/cms/config"
	"github.com/eventsite/cms/internal/media"
	"github.com/eventsite/cms/internal/worker"
	"github.com/eventsite/cms/pkg/database"
	"github.com/eventsite/cms/pkg/queue"
	"github.com/eventsite/cms/pkg/redis"
	"github.com/eventsite/cms/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if !cfg.AWS.MirrorEnabled() {
		logger.Fatal("AWS_REGION and AWS_S3_MEDIA_BUCKET are required for the worker")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{MaxConns: 4}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	local, err := storage.NewLocal(cfg.Upload.Dir, cfg.Upload.MaxSizeBytes())
	if err != nil {
		logger.Fatal("upload dir", zap.Error(err))
	}
	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		MediaBucket:     cfg.AWS.MediaBucket,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewMirrorProcessor(media.NewRepository(pool), local, s3Client, jobQueue, logger)

	workerCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("worker started", zap.String("bucket", cfg.AWS.MediaBucket))
	processor.Run(workerCtx)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
