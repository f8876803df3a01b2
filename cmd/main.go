package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/loopworks/traintrack-backend/internal/app"
	"github.com/loopworks/traintrack-backend/internal/data/db"
	auditRepos "github.com/loopworks/traintrack-backend/internal/data/repos/audit"
	catalogRepos "github.com/loopworks/traintrack-backend/internal/data/repos/catalog"
	progressionRepos "github.com/loopworks/traintrack-backend/internal/data/repos/progression"
	workerRepos "github.com/loopworks/traintrack-backend/internal/data/repos/worker"
	appHTTP "github.com/loopworks/traintrack-backend/internal/http"
	httpH "github.com/loopworks/traintrack-backend/internal/http/handlers"
	httpMW "github.com/loopworks/traintrack-backend/internal/http/middleware"
	"github.com/loopworks/traintrack-backend/internal/jobs"
	"github.com/loopworks/traintrack-backend/internal/observability"
	"github.com/loopworks/traintrack-backend/internal/platform/envutil"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
	"github.com/loopworks/traintrack-backend/internal/services"
)

func main() {
	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Error("Config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	if shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "traintrack",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	}); shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	// Database
	log.Info("Connecting to database...")
	dbService, err := db.NewDatabaseService(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	theDB := dbService.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	if err := db.EnsureProgressionIndexes(theDB); err != nil {
		log.Warn("Index setup failed", "error", err)
	}

	// Redis (optional; the catalog cache degrades to plain DB reads without it)
	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unreachable, continuing without catalog cache", "error", err)
			rdb = nil
		}
	}

	// Repos
	log.Info("Setting up repos...")
	workerRepo := workerRepos.NewWorkerRepo(theDB, log)
	courseRepo := catalogRepos.NewCourseRepo(theDB, log)
	levelRepo := catalogRepos.NewLevelRepo(theDB, log)
	progressRepo := progressionRepos.NewProgressRecordRepo(theDB, log)
	certRepo := progressionRepos.NewCertificateRepo(theDB, log)
	eventRepo := auditRepos.NewEventRepo(theDB, log)

	// Services
	log.Info("Setting up services...")
	auditService := services.NewAuditService(theDB, log, eventRepo)
	catalogService := services.NewCatalogService(theDB, log, courseRepo, levelRepo, rdb)
	certificateService := services.NewCertificateService(theDB, log, catalogService, progressRepo, certRepo, auditService)
	progressionService := services.NewProgressionService(theDB, log, catalogService, progressRepo, certificateService, auditService)
	authService := services.NewAuthService(theDB, log, workerRepo, cfg.JWTSecret, cfg.AccessTokenTTL)

	// Handlers + middleware
	authHandler := httpH.NewAuthHandler(authService)
	catalogHandler := httpH.NewCatalogHandler(catalogService)
	progressionHandler := httpH.NewProgressionHandler(progressionService)
	certificateHandler := httpH.NewCertificateHandler(certificateService)
	healthHandler := httpH.NewHealthHandler()
	authMiddleware := httpMW.NewAuthMiddleware(log, authService)

	server := appHTTP.NewServer(appHTTP.RouterConfig{
		Log:                log,
		AuthHandler:        authHandler,
		AuthMiddleware:     authMiddleware,
		CatalogHandler:     catalogHandler,
		ProgressionHandler: progressionHandler,
		CertificateHandler: certificateHandler,
		HealthHandler:      healthHandler,
	})

	reconciler := jobs.NewCertificateReconciler(log, certRepo, certificateService, cfg.ReconcileInterval, cfg.ReconcileBatch)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		return server.Run(gctx, cfg.HTTPAddr)
	})
	g.Go(func() error {
		return reconciler.Run(gctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error("Shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}
