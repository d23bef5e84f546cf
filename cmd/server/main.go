package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bankingapp "github.com/tallybook/backend/internal/application/banking"
	businessapp "github.com/tallybook/backend/internal/application/business"
	documentapp "github.com/tallybook/backend/internal/application/document"
	inventoryapp "github.com/tallybook/backend/internal/application/inventory"
	ledgerapp "github.com/tallybook/backend/internal/application/ledger"
	metricsapp "github.com/tallybook/backend/internal/application/metrics"
	partnerapp "github.com/tallybook/backend/internal/application/partner"
	reportapp "github.com/tallybook/backend/internal/application/report"
	"github.com/tallybook/backend/internal/domain/inventory"
	"github.com/tallybook/backend/internal/infrastructure/auth"
	"github.com/tallybook/backend/internal/infrastructure/cache"
	"github.com/tallybook/backend/internal/infrastructure/config"
	"github.com/tallybook/backend/internal/infrastructure/event"
	"github.com/tallybook/backend/internal/infrastructure/export"
	"github.com/tallybook/backend/internal/infrastructure/logger"
	"github.com/tallybook/backend/internal/infrastructure/persistence"
	"github.com/tallybook/backend/internal/infrastructure/telemetry"
	"github.com/tallybook/backend/internal/interfaces/http/handler"
	"github.com/tallybook/backend/internal/interfaces/http/middleware"
	"github.com/tallybook/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/tallybook/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Tallybook API
//	@version		1.0
//	@description	Transaction ledger backend for small businesses: money in/out tracking, bank reconciliation, receipts and invoices, contact debt, and analytics.
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/tallybook/backend
//	@contact.email	support@tallybook.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Tallybook Backend",
		zap.String("mode", cfg.Server.Mode),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize OpenTelemetry providers (no-ops when disabled)
	telemetryCtx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(telemetryCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer closeProvider(log, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(telemetryCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer closeProvider(log, "meter provider", meterProvider.Shutdown)

	logsProvider, err := telemetry.NewLoggerProvider(telemetryCtx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	defer closeProvider(log, "log exporter", logsProvider.Shutdown)
	if logsProvider.IsEnabled() {
		bridgeLevel, levelErr := zapcore.ParseLevel(cfg.Log.Level)
		if levelErr != nil {
			bridgeLevel = zapcore.InfoLevel
		}
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: logsProvider,
			Level:          bridgeLevel,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore,
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
	}

	// Continuous profiling via Pyroscope (no-op when disabled)
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Warn("Failed to start profiler, continuing without profiling", zap.Error(err))
	} else {
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Error("Error stopping profiler", zap.Error(err))
			}
		}()
	}

	// GORM logs through the same zap logger as everything else
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Redis-backed analytics cache. The ledger works without it; analytics
	// just recompute from the transactions on every request.
	var analyticsCache reportapp.AnalyticsCache
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, analytics caching disabled", zap.Error(err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis client", zap.Error(err))
			}
		}()
		analyticsCache = cache.NewRedisAnalyticsCache(redisClient, cfg.Analytics.CacheTTL)
		log.Info("Analytics cache enabled", zap.Duration("ttl", cfg.Analytics.CacheTTL))
	}

	businessRepo := persistence.NewGormBusinessRepository(db.DB)
	contactRepo := persistence.NewGormContactRepository(db.DB)
	itemRepo := persistence.NewGormItemRepository(db.DB)
	txRepo := persistence.NewGormTransactionRepository(db.DB)
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	bankRecordRepo := persistence.NewGormBankRecordRepository(db.DB)
	reconciliationAuditRepo := persistence.NewGormReconciliationAuditRepository(db.DB)
	dashboardRepo := persistence.NewGormDashboardRepository(db.DB)

	// Token issuance for business registration
	jwtService := auth.NewJWTService(cfg.Auth)

	// External document renderer
	documentExporter := export.NewHTTPExporter(cfg.Export)

	transactionService := ledgerapp.NewTransactionService(txRepo, contactRepo, itemRepo, businessRepo)
	contactService := partnerapp.NewContactService(contactRepo, txRepo)
	itemService := inventoryapp.NewItemService(itemRepo)
	documentService := documentapp.NewDocumentService(documentRepo, txRepo, businessRepo, documentExporter)
	businessService := businessapp.NewBusinessService(businessRepo, jwtService)
	storefrontService := businessapp.NewStorefrontService(businessRepo, itemRepo, transactionService)
	reconciliationService := bankingapp.NewReconciliationService(bankRecordRepo, reconciliationAuditRepo, txRepo, businessRepo, log)
	analyticsService := reportapp.NewAnalyticsService(txRepo, dashboardRepo, analyticsCache)

	eventBus := event.NewInMemoryEventBus(log)

	// Stock drops below threshold -> operator-visible warning
	lowStockHandler := inventoryapp.NewLowStockHandler(log)
	eventBus.Subscribe(lowStockHandler, lowStockHandler.EventTypes()...)

	// Ledger changes -> drop the business's cached analytics
	if analyticsCache != nil {
		cacheInvalidationHandler := reportapp.NewCacheInvalidationHandler(analyticsCache, log)
		eventBus.Subscribe(cacheInvalidationHandler, cacheInvalidationHandler.EventTypes()...)
	}

	log.Info("Event handlers registered",
		zap.Strings("low_stock_events", lowStockHandler.EventTypes()),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	transactionService.SetEventPublisher(eventBus)
	contactService.SetEventPublisher(eventBus)
	itemService.SetEventPublisher(eventBus)
	documentService.SetEventPublisher(eventBus)
	businessService.SetEventPublisher(eventBus)
	reconciliationService.SetEventPublisher(eventBus)

	// Business-level metrics (stock gauges, bank record backlog)
	if cfg.Telemetry.Enabled {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:             meterProvider.Meter("tallybook/business"),
			Logger:            log,
			InventoryProvider: telemetry.NewGormInventoryMetricsProvider(db.DB, inventory.LowStockThreshold),
			BankingProvider:   telemetry.NewGormBankingMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to initialize business metrics", zap.Error(err))
		} else {
			businessMetrics.StartPeriodicCollection(context.Background(), 5*time.Minute)
			defer businessMetrics.Stop()

			// Count transactions, payments, conversions, and documents as
			// their events flow through the bus
			metricsHandler := metricsapp.NewBusinessMetricsHandler(businessMetrics, log)
			eventBus.Subscribe(metricsHandler, metricsHandler.EventTypes()...)
		}
	}

	transactionHandler := handler.NewTransactionHandler(transactionService)
	contactHandler := handler.NewContactHandler(contactService)
	itemHandler := handler.NewItemHandler(itemService)
	documentHandler := handler.NewDocumentHandler(documentService)
	businessHandler := handler.NewBusinessHandler(businessService)
	storefrontHandler := handler.NewStorefrontHandler(businessService, storefrontService)
	bankRecordHandler := handler.NewBankRecordHandler(reconciliationService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)

	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.Server.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order matters: request IDs first so recovery and logging
	// can tag their output, security headers and CORS before any handler
	// runs, then body limits, telemetry, and rate limiting.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.Server.CORSAllowOrigins,
		AllowMethods:     cfg.Server.CORSAllowMethods,
		AllowHeaders:     cfg.Server.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.Server.MaxBodySize))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("tallybook/http"), true))
	}
	if cfg.Telemetry.ProfilingEnabled {
		engine.Use(middleware.ProfilingWithConfig(middleware.ProfilingConfig{
			Enabled:   true,
			SkipPaths: []string{"/health", "/api/v1/ping"},
		}))
	}

	if cfg.Server.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.Server.RateLimitRequests),
			zap.Duration("window", cfg.Server.RateLimitWindow),
		)
	}

	// Health check sits outside API versioning
	engine.GET("/health", healthHandler(db, log))

	if cfg.Swagger.Enabled {
		swaggerGuard := middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, middleware.JWTAuthMiddleware(jwtService))
		engine.GET("/swagger/*any", swaggerGuard, ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public endpoints (no authentication): business registration, the
	// customer-facing storefront, and document view confirmation. These get
	// their own stricter rate limit since they are open to the internet.
	public := engine.Group("/api/v1")
	if cfg.Server.PublicRateLimitEnabled {
		publicLimiter := middleware.NewRateLimiter(cfg.Server.PublicRateLimitRequests, cfg.Server.PublicRateLimitWindow)
		// Key on slug as well as IP so one hammered storefront cannot
		// starve the others behind a shared NAT.
		public.Use(middleware.RateLimitByKey(publicLimiter, func(c *gin.Context) string {
			return c.ClientIP() + "|" + c.Param("slug")
		}))
	}
	public.POST("/businesses/register", businessHandler.Register)
	public.GET("/storefront/:slug", storefrontHandler.Catalog)
	public.POST("/storefront/:slug/orders", storefrontHandler.PlaceOrder)
	public.POST("/public/documents/:id/viewed", documentHandler.ConfirmViewed)

	// Everything registered through the router requires a valid token
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Ledger domain (transactions, payments, issued documents)
	ledgerRoutes := router.NewDomainGroup("ledger", "/ledger")
	ledgerRoutes.POST("/transactions", transactionHandler.Create)
	ledgerRoutes.GET("/transactions", transactionHandler.List)
	ledgerRoutes.GET("/transactions/:id", transactionHandler.GetByID)
	ledgerRoutes.PUT("/transactions/:id", transactionHandler.Update)
	ledgerRoutes.DELETE("/transactions/:id", transactionHandler.Delete)
	ledgerRoutes.POST("/transactions/:id/payments", transactionHandler.RecordPayment)
	ledgerRoutes.POST("/transactions/:id/documents", documentHandler.Issue)
	ledgerRoutes.GET("/transactions/:id/documents", documentHandler.ListByTransaction)

	// Partner domain (contacts and their debt)
	partnerRoutes := router.NewDomainGroup("partner", "/partner")
	partnerRoutes.POST("/contacts", contactHandler.Create)
	partnerRoutes.GET("/contacts", contactHandler.List)
	partnerRoutes.GET("/contacts/debt-summary", contactHandler.DebtSummary)
	partnerRoutes.GET("/contacts/:id", contactHandler.GetByID)
	partnerRoutes.PUT("/contacts/:id", contactHandler.Update)
	partnerRoutes.DELETE("/contacts/:id", contactHandler.Delete)
	partnerRoutes.GET("/contacts/:id/debt", contactHandler.Debt)

	// Inventory domain (items and stock)
	inventoryRoutes := router.NewDomainGroup("inventory", "/inventory")
	inventoryRoutes.POST("/items", itemHandler.Create)
	inventoryRoutes.GET("/items", itemHandler.List)
	inventoryRoutes.GET("/items/low-stock", itemHandler.LowStock)
	inventoryRoutes.GET("/items/:id", itemHandler.GetByID)
	inventoryRoutes.PUT("/items/:id", itemHandler.Update)
	inventoryRoutes.DELETE("/items/:id", itemHandler.Delete)
	inventoryRoutes.PUT("/items/:id/stock", itemHandler.AdjustStock)

	// Banking domain (imported bank records and reconciliation)
	bankingRoutes := router.NewDomainGroup("banking", "/banking")
	bankingRoutes.POST("/records/import", bankRecordHandler.Import)
	bankingRoutes.POST("/records/import/csv", bankRecordHandler.ImportCSV)
	bankingRoutes.GET("/records", bankRecordHandler.List)
	bankingRoutes.GET("/records/:id", bankRecordHandler.GetByID)
	bankingRoutes.POST("/records/:id/convert", bankRecordHandler.Convert)
	bankingRoutes.GET("/reconciliation/audits", bankRecordHandler.ListAudits)

	// Documents domain (receipts and invoices)
	documentRoutes := router.NewDomainGroup("documents", "/documents")
	documentRoutes.GET("", documentHandler.List)
	documentRoutes.GET("/:id", documentHandler.GetByID)
	documentRoutes.GET("/:id/export", documentHandler.Export)

	// Business profile
	businessRoutes := router.NewDomainGroup("business", "/business")
	businessRoutes.GET("/profile", businessHandler.GetProfile)
	businessRoutes.PUT("/profile", businessHandler.UpdateProfile)

	// Analytics and dashboard
	reportRoutes := router.NewDomainGroup("report", "")
	reportRoutes.GET("/analytics", analyticsHandler.Analytics)
	reportRoutes.GET("/dashboard", analyticsHandler.Dashboard)

	r.Register(ledgerRoutes).
		Register(partnerRoutes).
		Register(inventoryRoutes).
		Register(bankingRoutes).
		Register(documentRoutes).
		Register(businessRoutes).
		Register(reportRoutes)

	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)
	r.Setup()

	// Unauthenticated ping for load balancer checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	serve(&http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}, log)
}

// serve runs srv until SIGINT or SIGTERM, then drains in-flight requests
// for up to 30 seconds before exiting.
func serve(srv *http.Server, log *zap.Logger) {
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

// closeProvider shuts down a telemetry provider with a bounded deadline so a
// stuck collector cannot hang process exit.
func closeProvider(log *zap.Logger, name string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}

// healthHandler reports liveness plus database reachability.
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
