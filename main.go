package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"aignite/internal/config"
	"aignite/internal/repository"
	"aignite/internal/scanner"
	"aignite/internal/server"
	"aignite/internal/service"
	"aignite/internal/vision"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	cfgPath := "configs/config.yml"
	if v := os.Getenv("AIGNITE_CONFIG"); v != "" {
		cfgPath = v
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.MigrateDB(db, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	tokens, err := service.NewTokenService(cfg.Auth.JWTSecret, cfg.TokenTTL())
	if err != nil {
		logger.Fatal("Failed to initialize token service", zap.Error(err))
	}

	pages, err := scanner.NewScanner(cfg.Scanner.Headless, cfg.ScanTimeout(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize scanner", zap.Error(err))
	}
	defer pages.Close()

	provider, err := vision.NewMultiProvider(vision.MultiConfig{
		Providers:   cfg.Vision.Providers,
		MaxFailures: cfg.Vision.MaxFailures,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize vision providers", zap.Error(err))
	}
	defer provider.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.NewServer(db, cfg, tokens, pages, provider, logger)
	if err := srv.Run(ctx, cfg.Server.Port); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}

	logger.Info("Application stopped.")
}
