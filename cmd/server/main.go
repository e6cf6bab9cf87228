package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"

	"github.com/digkill/QuickAI/internal/admin"
	"github.com/digkill/QuickAI/internal/api"
	"github.com/digkill/QuickAI/internal/auth"
	"github.com/digkill/QuickAI/internal/clipdrop"
	"github.com/digkill/QuickAI/internal/config"
	"github.com/digkill/QuickAI/internal/database"
	"github.com/digkill/QuickAI/internal/document"
	"github.com/digkill/QuickAI/internal/entitlement"
	"github.com/digkill/QuickAI/internal/llm"
	"github.com/digkill/QuickAI/internal/repository"
	"github.com/digkill/QuickAI/internal/service"
	"github.com/digkill/QuickAI/internal/storage"
	"github.com/digkill/QuickAI/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	var users service.UserStore = repository.NewUserRepository(db)
	if cfg.UsageBackend == config.UsageBackendRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		users = repository.NewRedisUserRepository(rdb)
	}
	creationRepo := repository.NewCreationRepository(db)

	verifier, err := auth.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile, 0)
	if err != nil {
		log.Fatalf("firebase: %v", err)
	}

	textClient, err := llm.NewClient(llm.SettingsFromConfig(cfg), logr)
	if err != nil {
		log.Fatalf("llm client: %v", err)
	}
	imageClient := clipdrop.NewClient(cfg, logr)

	uploader, err := storage.NewUploader(storage.Config{
		Endpoint:         cfg.S3Endpoint,
		Region:           cfg.S3Region,
		AccessKey:        cfg.S3AccessKey,
		SecretKey:        cfg.S3SecretKey,
		Bucket:           cfg.S3Bucket,
		PublicBaseURL:    cfg.S3PublicBaseURL,
		UsePathStyle:     cfg.S3UsePathStyle,
		Prefix:           cfg.S3Prefix,
		TransformBaseURL: cfg.CDNTransformBaseURL,
	})
	if err != nil {
		log.Fatalf("storage uploader: %v", err)
	}

	userService := service.NewUserService(users)
	taskService := service.NewTaskService(logr, service.TaskDeps{
		Gate:      entitlement.NewGate(cfg.FreeUsageLimit, users, logr),
		Text:      textClient,
		Images:    imageClient,
		Store:     uploader,
		Recorder:  service.NewCreationRecorder(creationRepo, logr),
		ReadDoc:   document.PDFText,
		MaxUpload: cfg.MaxUploadBytes,
	})
	creationService := service.NewCreationService(creationRepo, logr)

	if cfg.AdminEnabled() {
		adminServer := admin.NewServer(cfg.AdminListenAddr, cfg.AdminUsername, cfg.AdminPassword, logr, userService)
		go func() {
			if err := adminServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logr.Error("admin server stopped", "err", err)
			}
		}()
	}

	server := api.NewServer(api.Options{
		Addr:           cfg.HTTPListenAddr,
		MaxUploadBytes: cfg.MaxUploadBytes,
		UploadTmpDir:   cfg.UploadTmpDir,
		RequestTimeout: cfg.RequestTimeout,
	}, logr, auth.NewAuthenticator(verifier, userService, logr), taskService, creationService, db)

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("http server stopped", "err", err)
	}
}
