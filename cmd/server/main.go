package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"abroadhub/internal/cache"
	"abroadhub/internal/config"
	"abroadhub/internal/db"
	"abroadhub/internal/logger"
	"abroadhub/internal/router"
	"abroadhub/internal/services"
	"abroadhub/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	// Initialize Database
	gdb, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to get sql.DB")
	}
	defer sqlDB.Close()

	st := store.NewGormStore(gdb)
	commentCache := newCache(cfg)

	svc := services.NewCommentService(
		st,
		st,
		services.NewStoreNotifier(st, st, st),
		commentCache,
		services.OptionsFromConfig(cfg),
	)

	r := router.New(router.Deps{
		Comments:      svc,
		Users:         st,
		SessionSecret: cfg.SessionSecret,
		TemplatesDir:  cfg.TemplatesDir,
		Ping:          sqlDB.PingContext,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("AbroadHub comment service starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("graceful shutdown failed")
	}
	logger.Log.Info("server exited")
}

// newCache 按 CACHE_DRIVER 选择缓存实现；redis 连不上时退回进程内缓存
func newCache(cfg config.Config) cache.Cache {
	switch cfg.CacheDriver {
	case config.CacheNone:
		return cache.Noop{}
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Log.WithError(err).Warn("redis unavailable, falling back to in-process cache")
			_ = client.Close()
			break
		}
		logger.Log.WithField("addr", cfg.RedisAddr).Info("using redis comment cache")
		return cache.NewRedis(client, "abroadhub:")
	}

	lru, err := cache.NewLRU(cfg.CacheSize)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to create LRU cache")
	}
	return lru
}
