package main

import (
	"context"
	"time"

	"github.com/focusritual/collab/internal/infrastructure/auth"
	"github.com/focusritual/collab/internal/infrastructure/configs"
	"github.com/focusritual/collab/internal/infrastructure/logging"
	"github.com/focusritual/collab/internal/infrastructure/ratelimiter"
	"github.com/focusritual/collab/internal/infrastructure/repository"
	"github.com/focusritual/collab/internal/infrastructure/storage"
	"github.com/focusritual/collab/internal/infrastructure/tracing"
	"github.com/focusritual/collab/internal/infrastructure/ws"
	"github.com/focusritual/collab/internal/presentation/api"
	filesHandler "github.com/focusritual/collab/internal/presentation/handler/files"
	roomsHandler "github.com/focusritual/collab/internal/presentation/handler/rooms"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := configs.Load(configs.DetermineConfigPath())
	if err != nil {
		panic(err)
	}

	logger := logging.NewLogger(&logging.Config{
		FilePath: cfg.Logging.FilePath,
		Encoding: cfg.Logging.Encoding,
		Level:    cfg.Logging.Level,
		Logger:   cfg.Logging.Logger,
	})

	if cfg.Tracing.Enabled {
		shutdownTracer, err := tracing.InitTracer(tracing.Config{
			ServiceName: "collab",
			Environment: "production",
			Endpoint:    cfg.Tracing.Endpoint,
		})
		if err != nil {
			logger.Fatalf("failed to init tracer: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	var limiter ratelimiter.Limiter
	switch cfg.RateLimiter.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		limiter = ratelimiter.NewRedisRateLimiter(rdb, "collab:ratelimit", cfg.RateLimiter.Limit, cfg.RateLimiter.Window)
	default:
		limiter = ratelimiter.NewFixedWindowRateLimiter(cfg.RateLimiter.Limit, cfg.RateLimiter.Window)
	}
	defer limiter.Close()

	store, err := storage.NewLocal(cfg.Uploads.Dir)
	if err != nil {
		logger.Fatalf("failed to init storage: %v", err)
	}

	roomRepo := repository.NewRoomRepository(cfg.Rooms.Capacity, cfg.Rooms.IdleExpiry)
	fileRepo := repository.NewFileRepository()

	verifier := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.AllowGuests)

	roomMgr := ws.NewRoomManager(ws.TimerDurations{
		Work:  time.Duration(cfg.Timer.WorkSeconds) * time.Second,
		Break: time.Duration(cfg.Timer.BreakSeconds) * time.Second,
	}, cfg.HTTP.AllowedOrigins)
	core := ws.NewCore(roomMgr, fileRepo, logger)
	go core.Run()

	rooms := roomsHandler.NewHandler(roomRepo, roomMgr, core, verifier, logger)
	files := filesHandler.NewHandler(roomRepo, fileRepo, store, verifier, cfg.Uploads.MaxBytes, cfg.Uploads.AllowedTypes, logger)

	app := api.NewApplication(cfg, rooms, files, logger, limiter)

	if err := app.Run(app.Mount()); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}
