package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kakeibo/internal/amqp"
	"kakeibo/internal/auth"
	"kakeibo/internal/cache"
	"kakeibo/internal/config"
	"kakeibo/internal/core"
	apphttp "kakeibo/internal/http"
	"kakeibo/internal/services"
	"kakeibo/internal/session"
	"kakeibo/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	cacheManager := cache.NewManager()

	var sessions session.Store
	switch cfg.SessionBackend {
	case "sqlite":
		sqliteSessions := session.NewSQLiteStore(repo, cfg.SessionTTL)
		cacheManager.Register(sqliteSessions)
		sessions = sqliteSessions
		logger.Info("Initialized SQLite session store", "ttl", cfg.SessionTTL)
	default:
		memSessions := session.NewMemoryStore(cfg.SessionTTL)
		cacheManager.Register(memSessions)
		sessions = memSessions
		logger.Info("Initialized in-memory session store", "ttl", cfg.SessionTTL)
	}

	summaryCache := cache.NewLRUCache[core.Summary](500, 5*time.Minute)
	cacheManager.Register(summaryCache)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	var ledger *services.LedgerService
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		ledger = services.NewLedgerService(repo, amqpClient, summaryCache)
		logger.Info("Export pipeline enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		ledger = services.NewLedgerService(repo, nil, summaryCache)
		logger.Info("Export pipeline disabled - no AMQP_URL provided")
	}

	authSvc := auth.NewService(repo)

	srv := apphttp.NewServer(":"+cfg.Port, ledger, authSvc, sessions, cfg.SessionTTL, cfg.SecureCookie)

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting kakeibo server", "port", cfg.Port, "session_backend", cfg.SessionBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
