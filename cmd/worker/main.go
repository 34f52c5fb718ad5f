package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ledgerdesk/ledgerdesk/internal/app"
	"github.com/ledgerdesk/ledgerdesk/internal/finance"
	"github.com/ledgerdesk/ledgerdesk/internal/finance/export"
	financehttp "github.com/ledgerdesk/ledgerdesk/internal/finance/http"
	"github.com/ledgerdesk/ledgerdesk/internal/platform/cache"
	"github.com/ledgerdesk/ledgerdesk/internal/platform/db"
	"github.com/ledgerdesk/ledgerdesk/jobs"
	"github.com/ledgerdesk/ledgerdesk/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Asynq needs Redis regardless, so the worker fails fast without it.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

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

	warmupJob := jobs.NewArchiveWarmupJob(service, exporter, reports, branding, pool, logger, nil)

	// The scheduler enqueues this task every cycle, so it must not carry a
	// fixed task ID.
	cronPayload, err := json.Marshal(jobs.ArchiveWarmupPayload{})
	if err != nil {
		logger.Error("build warmup payload", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask := asynq.NewTask(jobs.TaskReportArchiveWarmup, cronPayload)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportArchiveWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			// First day of each month, once the previous month is closed.
			{Spec: "0 4 1 * *", Task: warmupTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
