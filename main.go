// File: homecare/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homecare/config"
	"homecare/cron"
	"homecare/database"
	trackingRepo "homecare/database/repository/tracking"
	"homecare/handlers"
	"homecare/middleware"
	"homecare/realtime"
	"homecare/routes"
	"homecare/services/accounts"
	"homecare/services/notification"
	"homecare/services/tasks"
	"homecare/services/tracking"
	"homecare/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitTrackingCache()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	auditRepo := trackingRepo.NewMongoAuditRepo()

	// services.
	tokenResolver := &notification.RedisTokenResolver{Client: utils.GetCacheClient()}
	notificationService, err := notification.NewDefaultNotificationService(tokenResolver)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize notification service: %v", err)
	}

	cron.InitTrackingWorker(notificationService)

	trackingCfg := tracking.ConfigFromApp()
	sessionStore := tracking.NewRedisSessionStore(utils.GetTrackingCacheClient(), trackingCfg.SessionTTL)
	dispatcher := tasks.NewAsynqDispatcher()
	hub := realtime.NewHub(logger)

	monitor := tracking.NewCheckInMonitor(
		sessionStore,
		tracking.WallClockScheduler{},
		dispatcher,
		auditRepo,
		trackingCfg,
		logger,
	)

	trackingService := &tracking.DefaultTrackingService{
		Store:    sessionStore,
		Hub:      hub,
		Monitor:  monitor,
		Archiver: auditRepo,
		Audit:    auditRepo,
		Dispatch: dispatcher,
		Cfg:      trackingCfg,
		Logger:   logger,
	}

	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetCacheClient(), utils.GetTrackingCacheClient()},
		database.MongoClient,
	)

	// Assemble the handler bundle.
	handlerBundle := &routes.HandlerBundle{
		Tracking:    handlers.NewTrackingHandler(trackingService, hub, logger),
		Devices:     handlers.NewDeviceHandler(tokenResolver),
		Eligibility: accounts.NewHTTPEligibilityVerifier(config.AppConfig.AccountsAPIURL),
	}

	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
