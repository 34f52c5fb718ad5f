package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerdesk/ledgerdesk/internal/app"
	"github.com/ledgerdesk/ledgerdesk/internal/finance"
	"github.com/ledgerdesk/ledgerdesk/internal/finance/export"
	financehttp "github.com/ledgerdesk/ledgerdesk/internal/finance/http"
	"github.com/ledgerdesk/ledgerdesk/internal/observability"
	"github.com/ledgerdesk/ledgerdesk/internal/platform/cache"
	"github.com/ledgerdesk/ledgerdesk/internal/platform/db"
	"github.com/ledgerdesk/ledgerdesk/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

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

	// The report cache degrades to a pass-through without Redis, so an
	// unreachable instance is not fatal here.
	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, report caching disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	if err := financehttp.SetupMetrics(metrics.Registerer()); err != nil {
		logger.Warn("register finance metrics", slog.Any("error", err))
	}

	store := finance.NewPGStore(pool)
	service := finance.NewStatementService(store, logger)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	exporter, err := export.NewExporter(pdfClient, logger)
	if err != nil {
		logger.Error("init report exporter", slog.Any("error", err))
		os.Exit(1)
	}
	reports := financehttp.NewReportCache(redisClient, cfg.ReportCacheTTL)
	branding := export.Branding{
		BusinessName: cfg.BusinessName,
		LogoURL:      cfg.LogoURL,
		Currency:     finance.ParseCurrency(cfg.Currency),
	}

	financeHandler := financehttp.NewHandler(logger, service, exporter, reports, branding)
	reportHandler := report.NewHandler(pdfClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		FinanceHandler: financeHandler,
		ReportHandler:  reportHandler,
		Metrics:        metrics,
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
