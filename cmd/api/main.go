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

	"telecom-billing/internal/audit"
	"telecom-billing/internal/auth"
	"telecom-billing/internal/billing"
	"telecom-billing/internal/calls"
	"telecom-billing/internal/config"
	"telecom-billing/internal/contacts"
	"telecom-billing/internal/httpapi"
	"telecom-billing/internal/pricing"
	"telecom-billing/internal/reporting"
	"telecom-billing/pkg/logger"
	"telecom-billing/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis is optional: without it invoicing falls back to an in-process lock.
	var (
		locker    billing.Locker = billing.NewLocalLocker()
		pingRedis func(context.Context) error
	)
	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
	if err != nil {
		log.Warn("redis unavailable, using in-process invoicing lock", "err", err)
	} else {
		defer rdb.Close()
		locker = billing.NewRedisLocker(rdb)
		pingRedis = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	rateRepo := pricing.NewPostgresRepo(db)
	engine := pricing.NewEngine(rateRepo)
	contactSvc := contacts.NewService(contacts.NewPostgresRepo(db))

	h := httpapi.Handlers{
		Auth:     auth.NewService(auth.NewPostgresUserStore(db), authManager),
		Pricing:  engine,
		Rates:    pricing.NewAdminService(rateRepo, auditSvc),
		Calls:    calls.NewRecorder(calls.NewPostgresRepo(db), contactSvc, engine),
		Contacts: contactSvc,
		Billing: billing.NewService(billing.NewPostgresRepo(db), locker, auditSvc, billing.Options{
			Locale:   cfg.Billing.Locale,
			Location: cfg.Location(),
			LockTTL:  cfg.Billing.InvoiceLockTTL,
		}),
		Reports: reporting.NewService(reporting.NewPostgresRepo(db)),
		Audit:   auditSvc,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager), healthCheck(
		func(ctx context.Context) error { return utils.HealthCheck(ctx, db, time.Second) },
		pingRedis,
	))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
