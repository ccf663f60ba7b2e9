package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nulzo/bifrost/internal/analytics"
	"github.com/nulzo/bifrost/internal/cache"
	"github.com/nulzo/bifrost/internal/config"
	"github.com/nulzo/bifrost/internal/gateway"
	"github.com/nulzo/bifrost/internal/platform/logger"
	"github.com/nulzo/bifrost/internal/platform/otel"
	"github.com/nulzo/bifrost/internal/registry"
	"github.com/nulzo/bifrost/internal/server"
	"github.com/nulzo/bifrost/internal/store/sqlite"
	"go.uber.org/zap"

	// adapters register themselves by type
	_ "github.com/nulzo/bifrost/internal/llm/anthropic"
	_ "github.com/nulzo/bifrost/internal/llm/openai"
)

func main() {
	logger.Initialize(logger.DefaultConfig())
	defer logger.Sync()
	log := logger.Get()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	repo, err := sqlite.NewSQLiteStorage(cfg.Store.DSN)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer func() { _ = repo.Close() }()

	cacheSvc, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal("failed to initialize cache", zap.Error(err))
	}
	defer func() { _ = cacheSvc.Close() }()

	if cfg.Tracing.Enabled {
		shutdown, err := otel.InitTracer("bifrost", log, os.Stdout)
		if err != nil {
			log.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	ingestor := analytics.NewIngestor(repo)
	defer ingestor.Close()

	reg := registry.New()
	service, err := gateway.Bootstrap(context.Background(), cfg, reg, cacheSvc, ingestor)
	if err != nil {
		log.Fatal("failed to bootstrap providers", zap.Error(err))
	}

	srv := server.New(cfg, log, service, repo)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Handler(),
	}

	go func() {
		log.Info("starting gateway", zap.String("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}
