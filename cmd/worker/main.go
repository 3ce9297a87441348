// Command worker applies builders' test run reports without serving HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"cloudcoder/internal/app/worker"
	"cloudcoder/internal/domain/repository"
	"cloudcoder/internal/platform/cache"
	"cloudcoder/internal/platform/config"
	"cloudcoder/internal/platform/database"
	"cloudcoder/internal/platform/logger"
)

func main() {
	config.Load()
	cfg := config.AppConfig

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	db, err := database.Connect(ctx, cfg.DBConnStr, cfg.DBMaxOpenConns)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("redis unavailable", zap.Error(err))
	}
	defer rdb.Close()

	runner := database.NewRunner(database.NewRegistry(db), log.Named("db"), nil)
	w := worker.NewResultWorker(rdb, cfg.ResultQueueName, runner, repository.NewPgSubmissionRepository(runner), log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Start(ctx)
	}()

	<-sigs
	log.Info("shutdown signal received")
	cancel()

	wg.Wait()
	log.Info("worker exited cleanly")
}
