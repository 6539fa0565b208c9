package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pagebuilder/api/internal/app"
	"pagebuilder/api/internal/blob"
	"pagebuilder/api/internal/config"
	"pagebuilder/api/internal/export"
	"pagebuilder/api/internal/logging"
	"pagebuilder/api/internal/session"
	"pagebuilder/api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	dataStore := store.NewPostgresStore(db)

	var opts []app.Option
	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis for session storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisStore.Close()
		opts = append(opts, app.WithSessionStore(redisStore))
	} else {
		logger.Info("using postgres for session storage")
	}

	renderer := export.NewChromeRenderer(cfg.Render.ChromePath, cfg.Render.Timeout)
	if path, err := renderer.LookPath(); err != nil {
		logger.Warn("pdf and png exports disabled", zap.Error(err))
	} else {
		logger.Info("export renderer found", zap.String("path", path))
		opts = append(opts, app.WithCapturer(renderer))
	}

	publisher, err := blob.New(cfg.Storage)
	switch {
	case errors.Is(err, blob.ErrDisabled):
		logger.Info("publishing disabled, no object storage endpoint configured")
	case err != nil:
		return fmt.Errorf("object storage client: %w", err)
	default:
		bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := publisher.EnsureBucket(bucketCtx)
		cancel()
		if err != nil {
			// Storage may come up after the API; publish retries the bucket check.
			logger.Warn("object storage bucket check failed", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}
		opts = append(opts, app.WithPublisher(publisher))
	}

	service := app.New(cfg, dataStore, logger, opts...)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("pagebuilder api listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	return nil
}
