package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openartmap/openartmap-backend/api/controllers"
	"github.com/openartmap/openartmap-backend/api/routes"
	"github.com/openartmap/openartmap-backend/internal/artworks"
	"github.com/openartmap/openartmap-backend/internal/audit"
	"github.com/openartmap/openartmap-backend/internal/consent"
	"github.com/openartmap/openartmap-backend/internal/massimport"
	"github.com/openartmap/openartmap-backend/internal/moderation"
	"github.com/openartmap/openartmap-backend/internal/photos"
	"github.com/openartmap/openartmap-backend/internal/similarity"
	"github.com/openartmap/openartmap-backend/internal/submissions"
	"github.com/openartmap/openartmap-backend/internal/validation"
	"github.com/openartmap/openartmap-backend/pkg/config"
	"github.com/openartmap/openartmap-backend/pkg/db"
	"github.com/openartmap/openartmap-backend/pkg/logger"
	"github.com/openartmap/openartmap-backend/pkg/metrics"
	"github.com/openartmap/openartmap-backend/pkg/migrate"
	"github.com/openartmap/openartmap-backend/pkg/redis"
	"github.com/openartmap/openartmap-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs client", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipeline := metrics.NewPipelineMetrics(registry)

	photoManager, err := photos.NewManager(gcsClient, nil, cfg.Photos, logg, pipeline)
	if err != nil {
		logg.Error(context.Background(), "failed to create photo manager", err)
		os.Exit(1)
	}

	resolver, err := similarity.NewResolver(similarity.NewRepository(dbClient.DB()), cfg.Similarity)
	if err != nil {
		logg.Error(context.Background(), "failed to create similarity resolver", err)
		os.Exit(1)
	}

	validator := validation.New(cfg.Photos.MaxPerSubmission)
	submissionRepo := submissions.NewRepository(dbClient.DB())
	consentLedger := consent.NewLedger(dbClient.DB())

	submissionService, err := submissions.NewService(
		dbClient, submissionRepo, consentLedger, validator,
		resolver, photoManager, cfg.Consent.Version, logg, pipeline,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create submission service", err)
		os.Exit(1)
	}

	importService, err := massimport.NewService(
		dbClient, submissionRepo, consentLedger, validator,
		photoManager, cfg.MassImport, cfg.Consent.Version, logg, pipeline,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create import service", err)
		os.Exit(1)
	}

	moderationEngine, err := moderation.NewEngine(
		dbClient, submissionRepo, artworks.NewRepository(dbClient.DB()),
		consentLedger, audit.NewRecorder(dbClient.DB()),
		photoManager, cfg.Moderation, logg, pipeline,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create moderation engine", err)
		os.Exit(1)
	}

	pingers := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
		"gcs":      gcsClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, pingers, redisClient,
			submissionService, importService, moderationEngine,
			gcsClient,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(stopCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
