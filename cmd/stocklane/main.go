package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stocklane/stocklane/internal/app"
	"github.com/stocklane/stocklane/internal/dashboard"
	"github.com/stocklane/stocklane/internal/documents"
	"github.com/stocklane/stocklane/internal/masterdata/categories"
	"github.com/stocklane/stocklane/internal/masterdata/locations"
	"github.com/stocklane/stocklane/internal/masterdata/partners"
	"github.com/stocklane/stocklane/internal/masterdata/products"
	"github.com/stocklane/stocklane/internal/masterdata/units"
	"github.com/stocklane/stocklane/internal/masterdata/warehouses"
	"github.com/stocklane/stocklane/internal/observability"
	"github.com/stocklane/stocklane/internal/platform/cache"
	"github.com/stocklane/stocklane/internal/platform/db"
	"github.com/stocklane/stocklane/internal/shared"
	"github.com/stocklane/stocklane/internal/stock"
	"github.com/stocklane/stocklane/jobs"
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
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
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

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	ledger := stock.NewLedger(stock.LedgerConfig{AllowNegativeStock: cfg.AllowNegativeStock})

	stockRepo := stock.NewRepository(dbpool)
	stockService := stock.NewService(stockRepo, ledger, auditLogger)
	stockHandler := stock.NewHandler(stockService, logger)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashboardRepo := dashboard.NewRepository(dbpool)
	dashboardService := dashboard.NewService(dashboardRepo, dashboardCache)
	dashboardHandler := dashboard.NewHandler(dashboardService, logger)

	documentRepo := documents.NewRepository(dbpool)
	documentService := documents.NewService(documentRepo, ledger, auditLogger, metrics, dashboardCache, logger, documents.ServiceConfig{
		RetryAttempts: cfg.PostingRetryAttempts,
		RetryBackoff:  cfg.PostingRetryBackoff,
	})
	documentHandler := documents.NewHandler(documentService, logger)

	productHandler := products.NewHandler(logger, products.NewService(products.NewRepository(dbpool)))
	categoryHandler := categories.NewHandler(logger, categories.NewService(categories.NewRepository(dbpool)))
	unitHandler := units.NewHandler(logger, units.NewService(units.NewRepository(dbpool)))
	warehouseHandler := warehouses.NewHandler(logger, warehouses.NewService(warehouses.NewRepository(dbpool)))
	locationHandler := locations.NewHandler(logger, locations.NewService(locations.NewRepository(dbpool)))
	partnerHandler := partners.NewHandler(logger, partners.NewService(partners.NewRepository(dbpool)))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	if err := dashboardCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("dashboard invalidation listener", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,

		ProductHandler:   productHandler,
		CategoryHandler:  categoryHandler,
		UnitHandler:      unitHandler,
		WarehouseHandler: warehouseHandler,
		LocationHandler:  locationHandler,
		PartnerHandler:   partnerHandler,

		StockHandler:     stockHandler,
		DocumentHandler:  documentHandler,
		DashboardHandler: dashboardHandler,
		JobHandler:       jobHandler,

		Metrics: metrics,
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
