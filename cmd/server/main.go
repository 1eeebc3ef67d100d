// Package main runs the event site HTTP API with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventsite/cms/config"
	"github.com/eventsite/cms/internal/auth"
	"github.com/eventsite/cms/internal/coordinators"
	"github.com/eventsite/cms/internal/events"
	"github.com/eventsite/cms/internal/media"
	"github.com/eventsite/cms/internal/middleware"
	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/internal/organizers"
	"github.com/eventsite/cms/internal/speakers"
	"github.com/eventsite/cms/internal/sponsors"
	"github.com/eventsite/cms/internal/worker"
	"github.com/eventsite/cms/pkg/database"
	"github.com/eventsite/cms/pkg/queue"
	"github.com/eventsite/cms/pkg/redis"
	"github.com/eventsite/cms/pkg/response"
	"github.com/eventsite/cms/pkg/storage"
)

// crudHandler is implemented by the admin handlers for speakers, sponsors, organizers and coordinators.
type crudHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

func registerCRUD(g *gin.RouterGroup, path string, h crudHandler) {
	g.GET(path, h.List)
	g.POST(path, h.Create)
	g.GET(path+"/:id", h.Get)
	g.PUT(path+"/:id", h.Update)
	g.DELETE(path+"/:id", h.Delete)
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{MaxConns: int32(cfg.Database.MaxConns)}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis is optional: without it rate limits are per-process and mirroring is off.
	var rdb *redis.Client
	var rawRedis *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory rate limits", zap.Error(err))
		} else {
			defer rdb.Close()
			rawRedis = rdb.Client
		}
	}

	local, err := storage.NewLocal(cfg.Upload.Dir, cfg.Upload.MaxSizeBytes())
	if err != nil {
		logger.Fatal("upload dir", zap.Error(err))
	}

	var s3Client *storage.S3
	if cfg.AWS.MirrorEnabled() {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			MediaBucket:     cfg.AWS.MediaBucket,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}
	assets := storage.NewAssets(local, s3Client, logger)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	userRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(userRepo, jwtService, logger)

	// People
	speakerRepo := speakers.NewRepository(pool)
	sponsorRepo := sponsors.NewRepository(pool)
	organizerRepo := organizers.NewRepository(pool)
	coordinatorRepo := coordinators.NewRepository(pool)

	// Media
	eventRepo := events.NewRepository(pool)
	mediaRepo := media.NewRepository(pool)
	var mirror media.Mirror
	var processor *worker.MirrorProcessor
	if rdb != nil && s3Client != nil {
		jobQueue := queue.NewQueue(rdb.Client, logger)
		mirror = jobQueue
		processor = worker.NewMirrorProcessor(mediaRepo, local, s3Client, jobQueue, logger)
	}
	mediaService := media.NewService(mediaRepo, eventRepo, mirror, assets, logger)
	mediaHandler := media.NewHandler(mediaService, local, logger)

	// Events
	eventHandler := events.NewHandler(events.HandlerConfig{
		Store:      eventRepo,
		Assoc:      events.NewAssociation(eventRepo, mediaRepo, logger),
		Populator:  events.NewPopulator(speakerRepo, sponsorRepo, organizerRepo, coordinatorRepo, mediaRepo),
		Images:     local,
		Files:      assets,
		PublicBase: cfg.Server.PublicBaseURL,
		Logger:     logger,
	})

	limiterStore, err := middleware.NewLimiterStore(rawRedis)
	if err != nil {
		logger.Fatal("rate limiter", zap.Error(err))
	}
	loginLimit, err := middleware.RateLimit(limiterStore, cfg.RateLimit.Login, logger)
	if err != nil {
		logger.Fatal("login rate limit", zap.Error(err))
	}
	publicLimit, err := middleware.RateLimit(limiterStore, cfg.RateLimit.Public, logger)
	if err != nil {
		logger.Fatal("public rate limit", zap.Error(err))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins()))
	router.Use(middleware.Logger(logger))
	router.MaxMultipartMemory = cfg.Upload.MaxSizeBytes()

	router.GET("/health", healthHandler(pool, rdb))
	router.Static("/uploads", local.Dir())

	api := router.Group("/api")
	api.POST("/admin/auth/login", loginLimit, authHandler.Login)

	// Public
	public := api.Group("", publicLimit)
	{
		public.GET("/events", eventHandler.List)
		public.GET("/events/:slug", eventHandler.GetBySlug)
		public.GET("/media", mediaHandler.List)
		public.GET("/media/:id", mediaHandler.Get)
		public.GET("/media/event/:eventId", mediaHandler.ListForEvent)
	}

	requireAdmin := []gin.HandlerFunc{
		middleware.JWT(jwtService, userRepo, logger),
		middleware.RequireRole(models.RoleAdmin),
	}

	// Event-media mapping
	mapping := api.Group("/events", requireAdmin...)
	{
		mapping.POST("/:eventId/media", eventHandler.AddMedia)
		mapping.POST("/:eventId/media/remove", eventHandler.RemoveMedia)
	}

	admin := api.Group("/admin", requireAdmin...)
	{
		admin.GET("/events", eventHandler.AdminList)
		admin.POST("/events", eventHandler.Create)
		admin.GET("/events/:id", eventHandler.AdminGet)
		admin.PUT("/events/:id", eventHandler.Update)
		admin.DELETE("/events/:id", eventHandler.Delete)
		admin.POST("/map/:eventId", eventHandler.Map)

		admin.GET("/media", mediaHandler.List)
		admin.POST("/media", mediaHandler.Create)
		admin.GET("/media/:id", mediaHandler.Get)
		admin.PUT("/media/:id", mediaHandler.Update)
		admin.DELETE("/media/:id", mediaHandler.Delete)

		registerCRUD(admin, "/speakers", speakers.NewHandler(speakerRepo, local, assets, logger))
		registerCRUD(admin, "/sponsors", sponsors.NewHandler(sponsorRepo, local, assets, logger))
		registerCRUD(admin, "/organizers", organizers.NewHandler(organizerRepo, local, assets, logger))
		registerCRUD(admin, "/coordinators", coordinators.NewHandler(coordinatorRepo, local, assets, logger))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process mirror worker; cmd/worker runs the same loop standalone.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if processor != nil {
		go processor.Run(workerCtx)
		logger.Info("media mirror worker started", zap.String("bucket", cfg.AWS.MediaBucket))
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func healthHandler(pool *pgxpool.Pool, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		status := gin.H{"status": "ok", "database": "ok"}
		if err := pool.Ping(ctx); err != nil {
			status["status"], status["database"] = "degraded", "down"
			c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Message: "Database unavailable", Data: status})
			return
		}
		if rdb != nil {
			status["redis"] = "ok"
			if !rdb.Healthy(ctx) {
				status["redis"] = "down"
			}
		}
		response.OK(c, status)
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
