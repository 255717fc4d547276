package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"geoclaim/internal/config"
	"geoclaim/internal/controllers"
	"geoclaim/internal/logger"
	"geoclaim/internal/middleware"
	"geoclaim/internal/routes"
	"geoclaim/internal/store"
	"geoclaim/internal/territory"
	"geoclaim/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration.")
	}

	// Initialize structured logging to file
	if err := logger.Setup(logger.Options{
		File:   cfg.Log.File,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Stdout: cfg.Log.Stdout,
	}); err != nil {
		logrus.WithError(err).Fatal("Invalid log configuration.")
	}

	// Connect to the database
	db, err := config.InitDB(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Database setup failed.")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Fatal("Database handle unavailable.")
	}
	defer sqlDB.Close()

	middleware.Configure(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	engine, err := territory.NewEngine(cfg.Tracking.Thresholds, logrus.WithField("component", "engine"))
	if err != nil {
		logrus.WithError(err).Fatal("Invalid tracking thresholds.")
	}

	hub := controllers.NewClaimHub()
	defer hub.Close()

	claims := store.New(db)
	svc := tracker.NewService(engine, claims, tracker.Options{
		MaxAccuracyM:   cfg.Tracking.MaxAccuracyM,
		MaxSessionIdle: cfg.Tracking.MaxSessionIdle,
		Publisher:      hub,
		Logger:         logrus.WithField("component", "tracker"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go svc.Run(ctx, cfg.Tracking.SweepInterval)

	// Request logging goes through logrus so it lands in the rotated file.
	requestLog := logrus.StandardLogger().Writer()
	defer requestLog.Close()

	r := routes.SetupRouter(routes.Handlers{
		Auth:        controllers.NewAuthController(db, cfg.Auth.AdminEmails),
		Tracking:    controllers.NewTrackingController(svc),
		Territories: controllers.NewTerritoryController(claims),
		Claims:      hub,
		Health: controllers.Health(
			map[string]controllers.Pinger{"database": sqlDB.PingContext},
			map[string]controllers.Gauge{"claim_feed_clients": hub.Clients},
		),
	},
		ginlog.SetLogger(
			ginlog.WithWriter(requestLog),
			ginlog.WithSkipPath([]string{"/healthz"}),
			ginlog.WithUTC(true),
		),
		gin.Recovery(),
	)

	// Wrap with CORS
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           middleware.EnableCORS(cfg.Server.AllowedOrigins, r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":        cfg.Server.Addr,
			"stop_policy": engine.Thresholds().StopPolicy,
		}).Info("Server running.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Server failed.")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed.")
	}
}
