package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fournitex/fournitex/internal/app"
	"github.com/fournitex/fournitex/internal/catalog/articles"
	"github.com/fournitex/fournitex/internal/observability"
	"github.com/fournitex/fournitex/internal/platform/cache"
	"github.com/fournitex/fournitex/internal/platform/db"
	"github.com/fournitex/fournitex/internal/sales/clients"
	"github.com/fournitex/fournitex/internal/sales/orders"
	"github.com/fournitex/fournitex/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, catalog cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	articleRepo := articles.NewRepository(pool)
	articleCache := articles.NewCache(redisClient, cfg.CatalogTTL)
	articleService := articles.NewService(articleRepo, articleCache, auditLogger)
	articleHandler := articles.NewHandler(logger, articleService)

	clientRepo := clients.NewRepository(pool)
	clientService := clients.NewService(clientRepo, auditLogger)
	clientHandler := clients.NewHandler(logger, clientService)

	orderRepo := orders.NewRepository(pool)
	orderService := orders.NewService(orderRepo, articleService, clientService, idempotencyStore, auditLogger)
	orderHandler := orders.NewHandler(logger, orderService)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		ArticleHandler: articleHandler,
		ClientHandler:  clientHandler,
		OrderHandler:   orderHandler,
		Pool:           pool,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
