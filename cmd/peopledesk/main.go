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

	"github.com/odyssey-erp/peopledesk/internal/app"
	"github.com/odyssey-erp/peopledesk/internal/audit"
	audithttp "github.com/odyssey-erp/peopledesk/internal/audit/http"
	"github.com/odyssey-erp/peopledesk/internal/auth"
	"github.com/odyssey-erp/peopledesk/internal/observability"
	"github.com/odyssey-erp/peopledesk/internal/platform/cache"
	"github.com/odyssey-erp/peopledesk/internal/platform/db"
	"github.com/odyssey-erp/peopledesk/internal/rbac"
	"github.com/odyssey-erp/peopledesk/internal/roles"
	"github.com/odyssey-erp/peopledesk/internal/shared"
	"github.com/odyssey-erp/peopledesk/internal/users"
	"github.com/odyssey-erp/peopledesk/internal/view"
	"github.com/odyssey-erp/peopledesk/jobs"
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

	dbpool, err := db.New(ctx, cfg.Postgres("server"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	services, err := app.NewServices(&cfg.StoreConfig, dbpool, redisClient, logger)
	if err != nil {
		logger.Error("init services", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, shared.SessionConfig{
		CookieName: "peopledesk_session",
		Secret:     cfg.SessionSecret,
		TTL:        cfg.SessionTTL,
		Secure:     cfg.IsProduction(),
	})
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine(services.Catalog)
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(auth.NewRepository(dbpool), tokens)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, services.Catalog)

	rbacMiddleware := rbac.Middleware{Service: services.RBAC, Logger: logger}
	usersHandler := users.NewHandler(logger, services.Users, templates, csrfManager, services.Idempotency, rbacMiddleware)
	rolesHandler := roles.NewHandler(logger, services.Roles)
	auditHandler := audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)))

	redisOpts := cfg.Asynq()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	metrics := observability.NewMetrics()
	cacheMetrics, err := observability.NewCacheMetrics(metrics.Registerer())
	if err != nil {
		logger.Error("init cache metrics", slog.Any("error", err))
		os.Exit(1)
	}
	services.Totals.SetRecorder(cacheMetrics)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Catalog:        services.Catalog,
		Tokens:         tokens,
		RBACMiddleware: rbacMiddleware,
		AuthHandler:    authHandler,
		UsersHandler:   usersHandler,
		RolesHandler:   rolesHandler,
		AuditHandler:   auditHandler,
		JobHandler:     jobHandler,
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
