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

	"github.com/atrium-hms/atrium/internal/app"
	"github.com/atrium-hms/atrium/internal/audit"
	"github.com/atrium-hms/atrium/internal/auth"
	"github.com/atrium-hms/atrium/internal/billing"
	"github.com/atrium-hms/atrium/internal/bookings"
	"github.com/atrium-hms/atrium/internal/guests"
	"github.com/atrium-hms/atrium/internal/ledger"
	"github.com/atrium-hms/atrium/internal/observability"
	"github.com/atrium-hms/atrium/internal/platform/cache"
	"github.com/atrium-hms/atrium/internal/platform/db"
	"github.com/atrium-hms/atrium/internal/rbac"
	"github.com/atrium-hms/atrium/internal/reports"
	"github.com/atrium-hms/atrium/internal/requests"
	"github.com/atrium-hms/atrium/internal/rooms"
	"github.com/atrium-hms/atrium/internal/shared"
	"github.com/atrium-hms/atrium/internal/users"
	"github.com/atrium-hms/atrium/internal/vendors"
	"github.com/atrium-hms/atrium/jobs"
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

	sessionManager := shared.NewSessionManager(redisClient, "atrium_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	auditLogger := shared.NewAuditLogger(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	locks := shared.NewKeyedMutex()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	rbacService := rbac.NewService(dbpool)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}
	rbacHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)

	roomsService := rooms.NewService(rooms.NewRepository(dbpool), auditLogger, logger)
	roomsHandler := rooms.NewHandler(logger, roomsService, rbacMiddleware)

	guestsService := guests.NewService(guests.NewRepository(dbpool), auditLogger, logger)
	guestsHandler := guests.NewHandler(logger, guestsService, rbacMiddleware)

	billingService := billing.NewService(billing.NewRepository(dbpool), locks, auditLogger, logger)
	billingHandler := billing.NewHandler(logger, billingService, rbacMiddleware, idempotencyStore)

	vendorsService := vendors.NewService(vendors.NewRepository(dbpool), locks, auditLogger, logger)
	vendorsHandler := vendors.NewHandler(logger, vendorsService, rbacMiddleware)

	ledgerService := ledger.NewService(ledger.NewRepository(dbpool), auditLogger, logger)
	ledgerService.SetVendorBalances(vendorsService)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, rbacMiddleware)

	bookingsService := bookings.NewService(bookings.NewRepository(dbpool), roomsService, billingService, idempotencyStore, auditLogger, logger)
	bookingsHandler := bookings.NewHandler(logger, bookingsService, rbacMiddleware)

	requestsService := requests.NewService(requests.NewRepository(dbpool), auditLogger, logger)
	requestsHandler := requests.NewHandler(logger, requestsService, rbacMiddleware)

	reportsService := reports.NewService(reports.NewPGRepository(dbpool), redisClient, logger)
	reportsHandler := reports.NewHandler(logger, reportsService, rbacMiddleware)

	auditService := audit.NewService(dbpool)
	auditHandler := audit.NewHandler(logger, auditService, rbacMiddleware)

	usersService := users.NewService(dbpool, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		AuthHandler:     authHandler,
		RoomsHandler:    roomsHandler,
		GuestsHandler:   guestsHandler,
		BookingsHandler: bookingsHandler,
		BillingHandler:  billingHandler,
		LedgerHandler:   ledgerHandler,
		VendorsHandler:  vendorsHandler,
		RequestsHandler: requestsHandler,
		ReportsHandler:  reportsHandler,
		AuditHandler:    auditHandler,
		UsersHandler:    usersHandler,
		RBACHandler:     rbacHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
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
