package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"cloudcoder/internal/api"
	"cloudcoder/internal/app/service"
	"cloudcoder/internal/app/worker"
	"cloudcoder/internal/common/security"
	"cloudcoder/internal/domain/repository"
	"cloudcoder/internal/platform/cache"
	"cloudcoder/internal/platform/config"
	"cloudcoder/internal/platform/database"
	"cloudcoder/internal/platform/logger"
)

func main() {
	// 1. Configuration and logging
	config.Load()
	cfg := config.AppConfig

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 2. Security
	security.InitJWT(cfg.JWTKey, cfg.JWTExp)
	security.SetBcryptCost(cfg.BcryptCost)

	ctx := context.Background()

	// 3. Database
	db, err := database.Connect(ctx, cfg.DBConnStr, cfg.DBMaxOpenConns)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()
	log.Info("database connected", zap.String("host", cfg.DBHost), zap.String("name", cfg.DBName))

	registry := database.NewRegistry(db)
	metrics := database.NewMetrics(prometheus.DefaultRegisterer, registry)
	runner := database.NewRunner(registry, log.Named("db"), metrics)

	// 4. Redis
	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("redis unavailable", zap.Error(err))
	}
	defer rdb.Close()
	log.Info("redis connected", zap.String("addr", cfg.RedisAddr))

	// 5. Repositories
	userRepo := repository.NewPgUserRepository(runner)
	courseRepo := repository.NewPgCourseRepository(runner)
	problemRepo := repository.NewPgProblemRepository(runner)
	submissionRepo := repository.NewPgSubmissionRepository(runner)
	changeRepo := repository.NewPgChangeRepository(runner)
	settingRepo := repository.NewPgSettingRepository(runner)

	// 6. Services
	courseService := service.NewCourseService(courseRepo, userRepo, log)
	problemService := service.NewProblemService(problemRepo, courseService, log)
	services := api.Services{
		Auth:       service.NewAuthService(userRepo, log),
		Courses:    courseService,
		Problems:   problemService,
		Changes:    service.NewChangeService(changeRepo, problemService),
		Submission: service.NewSubmissionService(submissionRepo, problemService, cache.NewLocker(rdb, cfg.ReceiptLockTTL, log), log),
		Settings:   service.NewSettingsService(settingRepo, rdb, cfg.SettingsCacheTTL, log),
	}

	// 7. Result worker (as a goroutine)
	resultWorker := worker.NewResultWorker(rdb, cfg.ResultQueueName, runner, submissionRepo, log.Named("worker"))
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		resultWorker.Start(workerCtx)
	}()

	// 8. Router and HTTP server
	router := api.NewRouter(services, api.WebhookConfig{
		Redis:  rdb,
		Queue:  cfg.ResultQueueName,
		Secret: cfg.WebhookSecret,
	}, prometheus.DefaultGatherer, log)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 9. Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("server starting", zap.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not listen", zap.String("port", cfg.APIPort), zap.Error(err))
		}
	}()

	<-stop

	log.Info("shutting down server")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	wg.Wait()

	log.Info("server and worker stopped", zap.Int64("open_connections", registry.OpenConnections()))
}
