package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chatsock/backend/internal/api/handler"
	"chatsock/backend/internal/archive"
	"chatsock/backend/internal/bus"
	"chatsock/backend/internal/chathub"
	"chatsock/backend/internal/config"
	"chatsock/backend/internal/directory"
	"chatsock/backend/internal/logger"
	"chatsock/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupDependencies(ctx context.Context, cfg config.Config, log *zap.Logger) (*redis.Client, bus.Bus, *archive.Archiver) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	b, err := bus.New(cfg.Bus.Driver, cfg.Bus.NatsURL, "chatsock-"+cfg.Domain, rdb)
	if err != nil {
		log.Fatal("failed to open bus", zap.String("driver", cfg.Bus.Driver), zap.Error(err))
	}

	archiver := archive.Disabled(log)
	if cfg.ArchiveEnabled() {
		store, err := archive.Open(cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal("failed to open archive", zap.Error(err))
		}
		archiver = archive.NewArchiver(store, log)
	}

	log.Info("dependencies ready",
		zap.String("bus", cfg.Bus.Driver), zap.Bool("archive", archiver.Enabled()))
	return rdb, b, archiver
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env)
	defer log.Sync()
	log.Info("starting chatsock backend", zap.String("env", cfg.Env), zap.String("domain", cfg.Domain))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Connections
	rdb, b, archiver := setupDependencies(ctx, cfg, log)
	store := storage.NewStorageService(rdb, cfg.Redis.Prefix)
	dir := directory.NewClient(cfg.Directory.BaseURL, cfg.Directory.UserAgent, cfg.JWT.Header, cfg.Directory.Timeout)

	// 2. Live fan-out
	hub := chathub.NewManagerService(store, cfg.Domain, log)
	go hub.Run(ctx)
	if err := chathub.NewListener(b, hub, cfg.Redis.Prefix, log).Start(ctx); err != nil {
		log.Fatal("failed to subscribe to bus", zap.Error(err))
	}
	publisher := chathub.NewPublisher(b, cfg.Redis.Prefix, cfg.PublishMutations, log)

	// 3. HTTP
	h, err := handler.NewHandler(cfg, store, dir, hub, publisher, archiver, log)
	if err != nil {
		log.Fatal("failed to build handler", zap.Error(err))
	}

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        handler.NewRouter(h),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	archiver.Wait()
	if err := b.Close(); err != nil {
		log.Warn("failed to close bus", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		log.Warn("failed to close redis", zap.Error(err))
	}
}
