package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	quoteapp "github.com/erp/quotefinance/internal/application/quote"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/erp/quotefinance/internal/infrastructure/auth"
	"github.com/erp/quotefinance/internal/infrastructure/config"
	"github.com/erp/quotefinance/internal/infrastructure/event"
	"github.com/erp/quotefinance/internal/infrastructure/logger"
	"github.com/erp/quotefinance/internal/infrastructure/notification"
	"github.com/erp/quotefinance/internal/infrastructure/persistence"
	"github.com/erp/quotefinance/internal/infrastructure/storage"
	"github.com/erp/quotefinance/internal/infrastructure/telemetry"
	"github.com/erp/quotefinance/internal/interfaces/http/handler"
	"github.com/erp/quotefinance/internal/interfaces/http/middleware"
	"github.com/erp/quotefinance/internal/interfaces/http/router"
)

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog := logger.New(logCfg)

	ctx := context.Background()

	// The OTel log bridge must exist before the main logger so that every
	// entry after this point reaches the collector as well.
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    serviceVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize OTel logs", zap.Error(err))
	}
	var extraCores []zapcore.Core
	if logsProvider.IsEnabled() {
		extraCores = append(extraCores, logsProvider.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	}
	log := logger.New(logCfg, extraCores...)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting quote finance service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Int64("node_id", cfg.App.NodeID),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    serviceVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    serviceVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.DB),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithLockWaitThreshold(cfg.Log.DBLockWait),
	)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	services, err := buildServices(cfg, db, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}

	// Events are published after commit; handlers only observe.
	eventBus := event.NewInMemoryEventBus(log)
	notifier, closeNotifier, err := notification.New(cfg.Notification, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to initialize notifications", zap.Error(err))
	}
	defer func() {
		if err := closeNotifier(); err != nil {
			log.Warn("Error closing notifier", zap.Error(err))
		}
	}()
	eventBus.Subscribe(quoteapp.NewNotificationHandler(notifier, log))

	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:  meterProvider.Meter("quotefinance"),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to initialize business metrics", zap.Error(err))
	}
	eventBus.Subscribe(businessMetrics)

	services.setEventPublisher(eventBus)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var attachments *handler.AttachmentHandler
	if cfg.Storage.Enabled {
		store, err := storage.NewS3AttachmentStore(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize attachment storage", zap.Error(err))
		}
		if cfg.Storage.CreateBucket {
			if err := store.EnsureBucket(ctx); err != nil {
				log.Fatal("Failed to prepare attachment bucket", zap.Error(err))
			}
		}
		attachments = handler.NewAttachmentHandler(store)
		log.Info("Attachment storage enabled", zap.String("bucket", store.Bucket()))
	}

	engine := newEngine(cfg, log, db)
	tokenParser := auth.NewTokenParser(cfg.JWT)
	r := router.NewRouter(engine, router.WithMiddleware(
		middleware.JWTAuthMiddleware(middleware.JWTMiddlewareConfig{
			Parser: tokenParser,
			Logger: log,
		}),
		middleware.TracingAttributeInjector(),
	))
	for _, group := range router.QuoteFinanceGroups(router.Handlers{
		Quotes:      handler.NewQuoteHandler(services.quotes, services.payments),
		Payments:    handler.NewPaymentHandler(services.payments),
		Invoices:    handler.NewInvoiceHandler(services.invoices),
		Statements:  handler.NewStatementHandler(services.statements),
		Voids:       handler.NewVoidHandler(services.voids),
		Attachments: attachments,
	}) {
		r.Register(group)
	}
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Error stopping event bus", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

type appServices struct {
	quotes     *quoteapp.QuoteService
	payments   *quoteapp.PaymentService
	invoices   *quoteapp.InvoiceService
	statements *quoteapp.StatementService
	voids      *quoteapp.VoidService
}

func buildServices(cfg *config.Config, db *persistence.Database, log *zap.Logger) (*appServices, error) {
	appCfg := quoteapp.Config{
		QuoteNoPrefix:         cfg.Quote.NoPrefix,
		BalanceUnit:           cfg.Quote.BalanceUnit,
		CapSubmissionToUnpaid: cfg.Quote.CapSubmissionToUnpaid,
	}
	if cfg.Quote.DefaultCurrency != "" {
		currency, err := valueobject.ParseCurrency(cfg.Quote.DefaultCurrency)
		if err != nil {
			return nil, err
		}
		appCfg.DefaultCurrency = currency
	}

	rules := make(map[string]quoteapp.FeeTypeRule, len(cfg.Quote.FeeTypes))
	for feeType, rule := range cfg.Quote.FeeTypes {
		defaultUnit := rule.DefaultUnit
		if defaultUnit == "" {
			defaultUnit = cfg.Quote.DefaultUnit
		}
		rules[feeType] = quoteapp.FeeTypeRule{DefaultUnit: defaultUnit, Units: rule.Units}
	}
	catalog := quoteapp.NewFeeTypeCatalog(rules, cfg.Quote.StrictUnits, log)

	scope := persistence.NewGormTransactionScope(db.DB)
	quotes := quoteapp.NewQuoteService(scope, catalog, appCfg, log)
	invoices, err := quoteapp.NewInvoiceService(scope, cfg.App.NodeID, log)
	if err != nil {
		return nil, err
	}
	return &appServices{
		quotes:     quotes,
		payments:   quoteapp.NewPaymentService(scope, quotes, appCfg, log),
		invoices:   invoices,
		statements: quoteapp.NewStatementService(scope, log),
		voids:      quoteapp.NewVoidService(scope, log),
	}, nil
}

func (s *appServices) setEventPublisher(bus *event.InMemoryEventBus) {
	s.quotes.SetEventPublisher(bus)
	s.payments.SetEventPublisher(bus)
	s.invoices.SetEventPublisher(bus)
	s.statements.SetEventPublisher(bus)
	s.voids.SetEventPublisher(bus)
}

func newEngine(cfg *config.Config, log *zap.Logger, db *persistence.Database) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	hsts := 0
	if cfg.App.Env == "production" {
		hsts = 31536000
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Secure(middleware.SecurityConfig{HSTSMaxAge: hsts}),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanErrorMarker(),
	)

	engine.GET("/health", handler.NewHealthHandler(db).Check)
	return engine
}
