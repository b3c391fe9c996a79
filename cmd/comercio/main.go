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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/comercio-app/comercio/internal/app"
	"github.com/comercio-app/comercio/internal/auth"
	"github.com/comercio-app/comercio/internal/backup"
	"github.com/comercio-app/comercio/internal/catalog"
	"github.com/comercio-app/comercio/internal/contacts"
	"github.com/comercio-app/comercio/internal/dashboard"
	"github.com/comercio-app/comercio/internal/expenses"
	"github.com/comercio-app/comercio/internal/observability"
	"github.com/comercio-app/comercio/internal/orders"
	"github.com/comercio-app/comercio/internal/platform/cache"
	"github.com/comercio-app/comercio/internal/platform/db"
	"github.com/comercio-app/comercio/internal/realtime"
	"github.com/comercio-app/comercio/internal/recyclebin"
	"github.com/comercio-app/comercio/internal/shared"
	"github.com/comercio-app/comercio/internal/stock"
	"github.com/comercio-app/comercio/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "comercio_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	broker := realtime.NewBroker(redisClient, logger)
	realtimeHandler := realtime.NewHandler(logger, broker)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, broker)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	contactsRepo := contacts.NewRepository(dbpool)
	contactsService := contacts.NewService(contactsRepo, broker)
	contactsHandler := contacts.NewHandler(logger, contactsService)

	ordersRepo := orders.NewRepository(dbpool)
	ordersService := orders.NewService(ordersRepo, auditLogger, broker)
	ordersHandler := orders.NewHandler(logger, ordersService, idempotencyStore)

	stockRepo := stock.NewRepository(dbpool)
	stockService := stock.NewService(stockRepo, auditLogger, broker)
	stockHandler := stock.NewHandler(logger, stockService)

	expensesRepo := expenses.NewRepository(dbpool)
	expensesService := expenses.NewService(expensesRepo, auditLogger, broker)
	expensesHandler := expenses.NewHandler(logger, expensesService)

	binRepo := recyclebin.NewRepository(dbpool)
	binService := recyclebin.NewService(binRepo, auditLogger, broker)
	binHandler := recyclebin.NewHandler(logger, binService)

	dashboardRepo := dashboard.NewRepository(dbpool)
	dashboardService := dashboard.NewService(dashboardRepo)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	backupService := backup.NewService(catalogService, contactsService)
	backupHandler := backup.NewHandler(logger, backupService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		Metrics:           metrics,
		AuthHandler:       authHandler,
		CatalogHandler:    catalogHandler,
		ContactsHandler:   contactsHandler,
		OrdersHandler:     ordersHandler,
		StockHandler:      stockHandler,
		ExpensesHandler:   expensesHandler,
		RecycleBinHandler: binHandler,
		DashboardHandler:  dashboardHandler,
		BackupHandler:     backupHandler,
		RealtimeHandler:   realtimeHandler,
		JobHandler:        jobHandler,
	})

	server := &http.Server{
		Addr:        cfg.AppAddr,
		Handler:     router,
		ReadTimeout: cfg.AppReadTimeout,
		// WriteTimeout stays off so the SSE stream is not cut; API routes
		// are bounded by the request timeout middleware instead.
		WriteTimeout: 0,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return broker.Run(groupCtx)
	})
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run", slog.Any("error", err))
		os.Exit(1)
	}
}
