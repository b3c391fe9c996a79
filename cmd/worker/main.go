package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/comercio-app/comercio/internal/app"
	"github.com/comercio-app/comercio/internal/catalog"
	"github.com/comercio-app/comercio/internal/platform/db"
	"github.com/comercio-app/comercio/internal/recyclebin"
	"github.com/comercio-app/comercio/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	client, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("create queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	catalogService := catalog.NewService(catalog.NewRepository(dbpool), nil)
	binService := recyclebin.NewService(recyclebin.NewRepository(dbpool), nil, nil)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Deps: jobs.Deps{
			Logger:   logger,
			Catalog:  catalogService,
			Bin:      binService,
			Mailer:   jobs.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom),
			Enqueuer: client,
			AlertsTo: cfg.AlertsTo,
		},
		Cron: []jobs.CronRegistration{
			{Spec: fmt.Sprintf("@every %s", cfg.StockAlertInterval), Task: jobs.NewStockScanTask()},
			{Spec: "0 3 * * *", Task: jobs.NewBinPurgeTask()},
		},
	})
	if err != nil {
		logger.Error("create worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting",
		slog.String("redis", cfg.RedisAddr),
		slog.Duration("stock_scan_interval", cfg.StockAlertInterval))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
