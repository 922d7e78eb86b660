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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"turf-booking-backend/config"
	"turf-booking-backend/internal/api"
	"turf-booking-backend/internal/booking"
	"turf-booking-backend/internal/db"
	"turf-booking-backend/internal/lock"
	"turf-booking-backend/internal/metrics"
	"turf-booking-backend/internal/notification"
	"turf-booking-backend/internal/schedule"
	"turf-booking-backend/internal/settlement"
	"turf-booking-backend/internal/store"
	"turf-booking-backend/internal/sweeper"
)

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Production {
		zc = zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zc.Build()
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	if cfg.Log.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Warn("VAPID keys are not configured, push delivery is disabled")
	}

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	logger.Info("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		mp, err := metrics.Init(ctx, cfg.Metrics)
		if err != nil {
			logger.Fatal("failed to initialize metrics", zap.Error(err))
		}
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer flushCancel()
			if err := mp.Shutdown(flushCtx); err != nil {
				logger.Error("failed to flush metrics", zap.Error(err))
			}
		}()
		logger.Info("metrics export enabled", zap.String("endpoint", cfg.Metrics.OTLPEndpoint))
	}

	appStore := store.NewGormStore(gormDB)
	locks := lock.NewManager(cfg.Booking.LockTTL, time.Now, logger.Named("lock"))

	var dispatcher notification.Dispatcher
	if webpushOptions != nil {
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, gormDB, webpushOptions, logger.Named("push"))
		pool.Start(ctx)
		dispatcher = pool
	}
	notifications := notification.NewService(gormDB, dispatcher, logger.Named("notification"))

	bookings := booking.NewService(appStore, locks, cfg.Booking.DefaultPrice, time.Now, logger.Named("booking"))
	settlements := settlement.NewService(appStore, bookings, notifications, time.Now, logger.Named("settlement"))

	if cfg.Sweeper.IsEnabled() {
		sweeperSvc := sweeper.NewService(gormDB, locks, cfg.Sweeper.Interval, time.Now, logger.Named("sweeper"))
		sweeperSvc.Start(ctx)
		defer sweeperSvc.Stop()
	}

	handler := api.NewHandler(api.Services{
		Schedule:      schedule.NewService(appStore, logger.Named("schedule")),
		Bookings:      bookings,
		Settlement:    settlements,
		Notifications: notifications,
	}, webpushOptions, cfg.Payments.WebhookToken, logger.Named("api"))

	router := api.NewRouter(handler, cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}

	logger.Info("server gracefully stopped")
}
