package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/van-fee-api/api/swagger"
	"github.com/noah-isme/van-fee-api/internal/handler"
	"github.com/noah-isme/van-fee-api/internal/repository"
	"github.com/noah-isme/van-fee-api/internal/router"
	"github.com/noah-isme/van-fee-api/internal/service"
	"github.com/noah-isme/van-fee-api/pkg/cache"
	"github.com/noah-isme/van-fee-api/pkg/config"
	"github.com/noah-isme/van-fee-api/pkg/database"
	"github.com/noah-isme/van-fee-api/pkg/jobs"
	"github.com/noah-isme/van-fee-api/pkg/logger"
)

// @title Van Fee API
// @version 1.0.0
// @description Monthly school-van fee ledger: schools, students, accruals, payments and parent reminders.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(context.Background(), db, logr); err != nil {
			logr.Fatal("migration failed", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo service.CacheRepository
	readiness := map[string]handler.Pinger{"database": db.PingContext}
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			readiness["cache"] = repo.Ping
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cacheRepo != nil)

	users := repository.NewUserRepository(db)
	schools := repository.NewSchoolRepository(db)
	students := repository.NewStudentRepository(db)
	imports := repository.NewImportRepository(db)

	var (
		writer service.AccrualWriter
		queue  *jobs.Queue
	)
	if cfg.Billing.AsyncWrites {
		queued := service.NewQueuedAccrualWriter(students, metrics, logr, service.QueuedAccrualConfig{
			Workers:    cfg.Billing.WorkerConcurrency,
			MaxRetries: cfg.Billing.WorkerRetries,
			RetryDelay: cfg.Billing.RetryDelay,
		})
		queue = queued.Queue()
		queue.Start(context.Background())
		writer = queued
	} else {
		writer = service.NewDirectAccrualWriter(students, metrics, logr)
	}

	calendar := service.NewCalendar(cfg.Billing.Location(), nil)
	notifications := service.NewNotificationService(service.NotificationConfig{
		CountryCode:    cfg.Notifications.CountryCode,
		BusinessName:   cfg.Notifications.BusinessName,
		CurrencySymbol: cfg.Notifications.CurrencySymbol,
	}, service.NewLogNotifier(logr), logr)

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	billingSvc := service.NewBillingService(schools, students, writer, notifications, cacheSvc, metrics, calendar, logr)
	schoolSvc := service.NewSchoolService(schools, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(students, schools, billingSvc, cacheSvc, validate, logr)
	reminderSvc := service.NewReminderService(billingSvc, billingSvc, notifications, logr)
	dashboardSvc := service.NewDashboardService(billingSvc, cacheSvc, calendar, cfg.Cache.TTL, logr)
	statementSvc := service.NewStatementService(billingSvc, nil, nil, cfg.Notifications.CurrencySymbol, logr)
	importSvc := service.NewImportService(imports, schools, cacheSvc, validate, logr)

	engine := router.New(router.Config{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
	}, router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Billing:    handler.NewBillingHandler(billingSvc),
		Schools:    handler.NewSchoolHandler(schoolSvc),
		Students:   handler.NewStudentHandler(studentSvc, billingSvc),
		Reminders:  handler.NewReminderHandler(reminderSvc),
		Dashboard:  handler.NewDashboardHandler(dashboardSvc),
		Statements: handler.NewStatementHandler(statementSvc),
		Imports:    handler.NewImportHandler(importSvc),
		Ops:        handler.NewMetricsHandler(metrics, readiness),
	}, authSvc, metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("server shutdown", zap.Error(err))
	}
	if queue != nil {
		if err := queue.Stop(ctx); err != nil {
			logr.Error("accrual writer did not drain", zap.Error(err))
		}
	}
	logr.Info("server stopped")
}
