package main

import (
	"context"
	"errors"
	"fitdesk/backoffice/internal/api"
	"fitdesk/backoffice/internal/config"
	"fitdesk/backoffice/internal/logging"
	"fitdesk/backoffice/internal/observability"
	"fitdesk/backoffice/internal/repository/mongo"
	"fitdesk/backoffice/internal/service"
	"fitdesk/backoffice/internal/storage"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

// @title FitDesk Back Office API
// @version 1.0
// @description Training templates, their periods ("rangos") and exercise libraries for trainers.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using process environment")
	}

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	// --- Logging and error reporting ---
	lg, err := logging.Init(cfg.Log.Level, cfg.Log.Env)
	if err != nil {
		log.Fatalf("FATAL: Could not init logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Sentry.Environment, version)
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	// NewAuthService panics on an empty secret; fail with a readable message first.
	if cfg.JWT.Secret == "" {
		logger.Fatal("jwt.secret is not configured")
	}

	ctx := context.Background()

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(ctx, cfg.Database.URI, logger)
	if err != nil {
		logger.Fatal("could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	// --- Ensure Indexes ---
	// Runs in the background; the unique indexes only matter once writes start.
	go func() {
		indexCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		mongo.EnsureIndexes(indexCtx, appDB, logger)
		logger.Info("index creation completed")
	}()

	// --- Export storage ---
	fileStorage, err := storage.NewS3Storage(ctx, cfg.S3, logger)
	if err != nil {
		logger.Fatal("could not initialize S3 storage", zap.Error(err))
	}

	// --- Repositories and services ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	templateRepo := mongo.NewMongoTemplateRepository(appDB)

	// Exports read templates through the service so ownership is checked once.
	templateService := service.NewTemplateService(templateRepo, logger)
	services := api.Services{
		Auth:     service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, logger),
		Exercise: service.NewExerciseService(exerciseRepo),
		Template: templateService,
		Export:   service.NewExportService(templateService, fileStorage, cfg.Export.KeyPrefix, cfg.Export.URLExpiry, logger),
	}

	// --- Gin engine and routes ---
	if cfg.Log.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, cfg.JWT.Secret, services, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Start HTTP Server ---
	go func() {
		logger.Info("server starting", zap.String("address", cfg.Server.Address), zap.String("version", version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ListenAndServe", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// In-flight requests get 5 seconds to finish.
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exiting")
}
