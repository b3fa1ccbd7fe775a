// Command server runs the maintenance tracking agent: a local-first HTTP API
// over SQLite that mirrors writes to a remote backend when connectivity
// allows and buffers them in durable offline queues otherwise.
//
// Startup order:
//  1. Environment (.env optional) and configuration
//  2. Logging (zerolog, optional pretty console output)
//  3. OpenTelemetry tracing (optional)
//  4. Local database (SQLite, WAL) and schema migration
//  5. Remote backend client, connectivity monitor, offline queues, services
//  6. Gin router and HTTP server with graceful shutdown
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
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/henrimbassi12/gulfmaintain-backend/docs"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/backend"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/config"
	httpapi "github.com/henrimbassi12/gulfmaintain-backend/internal/http"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/observability"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/offline"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/predict"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/repo"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/services"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real deployments use the process environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	logger := log.With().Str("service", cfg.OTEL.ServiceName).Logger()

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	// Remote mirror plumbing. With no backend configured the monitor starts
	// offline and every write stays queued locally.
	remote := backend.NewRESTClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	monitor := offline.NewMonitor(cfg.Backend.StartOnline, logger)
	store := offline.NewGormStore(db)
	notifier := services.LogNotifier{Log: logger}

	equipSvc, err := services.NewEquipmentService(ctx, db, remote, monitor, store, notifier, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("wiring equipment service failed")
	}
	defer equipSvc.Close()

	reportSvc, err := services.NewReportService(ctx, db, remote, monitor, store, notifier, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("wiring report service failed")
	}

	predictor := predict.NewClient(cfg.Predict.BaseURL, cfg.Predict.Timeout, logger)
	predictionSvc, err := services.NewPredictionService(ctx, db, predictor, remote, monitor, store, notifier, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("wiring prediction service failed")
	}

	profileSvc := services.NewProfileService(db, logger)
	alertSvc := services.NewAlertService(db, notifier, logger)
	assignSvc := services.NewAssignmentService(db, notifier, logger)

	syncSvc := services.NewSyncService(monitor, logger)
	syncSvc.Register(equipSvc.Queue, equipSvc)
	syncSvc.Register(reportSvc.Queue, reportSvc)
	syncSvc.Register(predictionSvc.Queue, predictionSvc)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, httpapi.Services{
		Equipment:  equipSvc,
		Report:     reportSvc,
		Prediction: predictionSvc,
		Profile:    profileSvc,
		Alert:      alertSvc,
		Assignment: assignSvc,
		Sync:       syncSvc,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-stop.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("otel shutdown failed")
	}
}
