// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/durak/internal/auth"
	"github.com/jason-s-yu/durak/internal/cache"
	"github.com/jason-s-yu/durak/internal/config"
	"github.com/jason-s-yu/durak/internal/database"
	"github.com/jason-s-yu/durak/internal/game"
	"github.com/jason-s-yu/durak/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	if err := auth.Init(cfg.TokenExpire); err != nil {
		logger.Fatalf("Failed to initialize auth: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules := game.DefaultHouseRules()
	rules.HandSize = cfg.HandSize
	rules.LowestRank = cfg.LowestRank
	if err := rules.Validate(); err != nil {
		logger.Fatalf("Invalid house rules: %v", err)
	}

	gs := handlers.NewGameServer(logger, rules)
	gs.SendQueueSize = cfg.SendQueueSize
	gs.WriteTimeout = cfg.WriteTimeout
	gs.RoomStore.IdleTimeout = cfg.RoomIdleTimeout
	gs.OriginPatterns = handlers.OriginPatterns(cfg.AllowedOrigins)

	if cfg.DatabaseURL != "" {
		if err := database.ConnectDB(ctx, cfg.DatabaseURL); err != nil {
			logger.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer database.Close()
		gs.Checkpoints = database.NewGameStateStore(nil)
		logger.Info("Postgres connected; registration and checkpoints enabled")
	} else {
		logger.Warn("DATABASE_URL not set; registration and checkpoints disabled")
	}

	if cfg.RedisAddr != "" {
		if err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB); err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer cache.Rdb.Close()
		gs.ActionLog = cache.NewActionLog(nil, cfg.ActionLogTTL)
		logger.Info("Redis connected; action log enabled")
	} else {
		logger.Warn("REDIS_ADDR not set; action log disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(gs, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}
