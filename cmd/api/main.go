package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/gramsetu/chw-api/internal/config"
	"github.com/gramsetu/chw-api/internal/handler"
	authHandler "github.com/gramsetu/chw-api/internal/handler/auth"
	patientHandler "github.com/gramsetu/chw-api/internal/handler/patient"
	syncHandler "github.com/gramsetu/chw-api/internal/handler/sync"
	workerHandler "github.com/gramsetu/chw-api/internal/handler/worker"
	"github.com/gramsetu/chw-api/internal/middleware"
	"github.com/gramsetu/chw-api/internal/repository/postgres"
	"github.com/gramsetu/chw-api/internal/router"
	authService "github.com/gramsetu/chw-api/internal/service/auth"
	patientService "github.com/gramsetu/chw-api/internal/service/patient"
	syncService "github.com/gramsetu/chw-api/internal/service/sync"
	workerService "github.com/gramsetu/chw-api/internal/service/worker"
	"github.com/gramsetu/chw-api/pkg/auth"
	"github.com/gramsetu/chw-api/pkg/logger"
	"github.com/gramsetu/chw-api/pkg/metrics"
	"github.com/gramsetu/chw-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := postgres.MigrateUp(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Repositories
	workerRepo := postgres.NewWorkerRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	visitRepo := postgres.NewVisitRepository(db)
	syncRepo := postgres.NewSyncRepository(db)

	// Shared infrastructure
	m := metrics.NewMetrics("chw_api")
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	// Services
	authSvc := authService.NewService(workerRepo, hasher, tokens)
	workerSvc := workerService.NewService(workerRepo)
	patientSvc := patientService.NewService(patientRepo, visitRepo)
	syncSvc := syncService.NewService(syncRepo, m)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(
		tokens, workerRepo, time.Duration(cfg.Auth.WorkerCacheSeconds)*time.Second,
	)

	// Handlers
	h := handler.NewHandler(db)
	authH := authHandler.NewHandler(authSvc)
	workerH := workerHandler.NewHandler(workerSvc, authMiddleware)
	patientH := patientHandler.NewHandler(patientSvc)
	syncH := syncHandler.NewHandler(syncSvc)

	r := router.NewRouter(authMiddleware, authH, workerH, patientH, syncH, h, m, router.Config{
		RateLimit:  rate.Limit(cfg.RateLimit.RPS),
		RateBurst:  cfg.RateLimit.Burst,
		CORSConfig: middleware.DefaultCORSConfig(),
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
