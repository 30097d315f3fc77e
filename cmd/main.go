package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"stockbill/internal/analytics"
	"stockbill/internal/caching"
	"stockbill/internal/config"
	"stockbill/internal/exporters"
	"stockbill/internal/handlers"
	"stockbill/internal/jobs"
	"stockbill/internal/jobs/background"
	"stockbill/internal/middleware"
	"stockbill/internal/repositories"
	"stockbill/internal/services"
	"stockbill/migrations"
	"stockbill/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := migrations.Apply(ctx, pool); err != nil {
			logger.WithError(err).Fatal("Failed to apply migrations")
		}
		logger.Info("Database schema is up to date")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The cache is optional; requests fall through to the database.
		logger.WithError(err).Warn("Redis unavailable at startup")
	}

	minioSvc, err := services.NewMinioService(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize MinIO service")
	}
	if err := minioSvc.EnsureBucketExists(ctx); err != nil {
		logger.WithError(err).Warn("Failed to ensure invoice bucket exists")
	}

	// Repositories
	store := repositories.NewStore(pool)
	reportRepo := repositories.NewReportRepo(pool)

	// Cache
	cacheSvc := caching.NewRedisCacheService(redisClient)
	locker := caching.NewRedisLocker(redisClient)

	// Services
	productSvc := services.NewProductService(store.Products(), cacheSvc, locker, logger.WithField("service", "product"), cfg.ProductCacheTTL)
	invoiceSvc := services.NewInvoiceService(
		store,
		services.NewStockReconciler(logger.WithField("component", "stock")),
		services.NewInvoiceNumberer(time.Now),
		exporters.NewPDFInvoiceRenderer(cfg.CompanyName),
		minioSvc,
		cacheSvc,
		logger.WithField("service", "invoice"),
	)
	reportSvc := services.NewReportService(
		reportRepo,
		analytics.NewAggregator(cfg.ReportPendingStatus),
		exporters.NewReportExporter(),
		cacheSvc,
		cfg.ReportCacheTTL,
		logger.WithField("service", "report"),
	)

	// Background jobs
	alerts := jobs.NewInventoryAlertService(store.Products(), logger.WithField("job", background.JobLowStockAlerts))
	refresher := jobs.NewReportRefreshService(reportRepo, reportSvc, logger.WithField("job", background.JobReportRefresh))
	scheduler, err := background.NewJobScheduler(background.Intervals{
		LowStock:      cfg.LowStockInterval,
		ReportRefresh: cfg.ReportRefreshInterval,
	}, alerts, refresher, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create job scheduler")
	}
	scheduler.Start()

	// Handlers
	productHandlers := handlers.NewProductHandlers(productSvc, logger)
	invoiceHandlers := handlers.NewInvoiceHandlers(invoiceSvc, logger)
	reportHandlers := handlers.NewReportHandlers(reportSvc, logger)
	jobHandlers := handlers.NewJobHandlers(scheduler, reportSvc, logger)
	healthHandlers := handlers.NewHealthHandlers(map[string]handlers.DependencyCheck{
		"database": pool.Ping,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
		"storage": minioSvc.Ping,
	}, []string{"database"}, version, logger)

	rateLimiter := middleware.NewRateLimiter(cacheSvc, cfg.RateLimitRequests, cfg.RateLimitWindow, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	v1 := e.Group("/v1")
	v1.Use(echojwt.WithConfig(middleware.JWTConfig(cfg.JWTSecret)))
	v1.Use(middleware.TenantContext())
	v1.Use(rateLimiter.PerTenant())

	// Products
	v1.GET("/products", productHandlers.ListProducts)
	v1.POST("/products", productHandlers.CreateProduct)
	v1.GET("/products/search", productHandlers.SearchProducts)
	v1.GET("/products/low-stock", productHandlers.LowStockProducts)
	v1.GET("/products/categories", productHandlers.ListCategories)
	v1.GET("/products/units", productHandlers.ListUnitTypes)
	v1.POST("/products/import", productHandlers.ImportProducts)
	v1.GET("/products/:id", productHandlers.GetProduct)
	v1.PUT("/products/:id", productHandlers.UpdateProduct)
	v1.DELETE("/products/:id", productHandlers.DeleteProduct)

	// Invoices
	v1.GET("/invoices", invoiceHandlers.ListInvoices)
	v1.POST("/invoices", invoiceHandlers.CreateInvoice)
	v1.GET("/invoices/search", invoiceHandlers.SearchInvoices)
	v1.GET("/invoices/overdue", invoiceHandlers.ListOverdueInvoices)
	v1.GET("/invoices/:id", invoiceHandlers.GetInvoice)
	v1.PUT("/invoices/:id", invoiceHandlers.UpdateInvoice)
	v1.DELETE("/invoices/:id", invoiceHandlers.DeleteInvoice)
	v1.PUT("/invoices/:id/status", invoiceHandlers.UpdateInvoiceStatus)
	v1.GET("/invoices/:id/pdf", invoiceHandlers.DownloadInvoicePDF)
	v1.POST("/invoices/:id/archive", invoiceHandlers.ArchiveInvoicePDF)

	// Reports
	v1.GET("/reports/daily", reportHandlers.DailyReport)
	v1.GET("/reports/monthly", reportHandlers.MonthlyReport)
	v1.GET("/reports/yearly", reportHandlers.YearlyReport)
	v1.GET("/reports/custom", reportHandlers.CustomReport)
	v1.GET("/reports/product-performance", reportHandlers.ProductPerformanceReport)
	v1.GET("/reports/dashboard", reportHandlers.DashboardReport)
	v1.GET("/reports/:type/export", reportHandlers.ExportReport)

	// Jobs
	v1.GET("/jobs/status", jobHandlers.JobStatus)
	v1.POST("/jobs/dashboard-refresh", jobHandlers.RefreshDashboard)

	go func() {
		logger.WithFields(logrus.Fields{"version": version, "port": cfg.Port}).Info("StockBill server starting")
		if err := e.Start(fmt.Sprintf(":%s", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	if err := scheduler.Stop(); err != nil {
		logger.WithError(err).Warn("Job scheduler did not stop cleanly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
}
