// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/nanis-backend/internal/config"
	"github.com/unclebandit/nanis-backend/internal/db"
	"github.com/unclebandit/nanis-backend/internal/logger"
	"github.com/unclebandit/nanis-backend/internal/queue"
	"github.com/unclebandit/nanis-backend/internal/repository"
	"github.com/unclebandit/nanis-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Must("info", "json").Fatal("failed to load config", zap.Error(err))
	}
	log := logger.Must(cfg.Logging.Level, cfg.Logging.Format).Named("worker")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to DB
	sqlDB, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer sqlDB.Close()

	// Connect to RabbitMQ, or stay in process when no url is configured
	pipeline, closePipeline, err := queue.OpenSendPipeline(cfg.AMQP, log)
	if err != nil {
		log.Fatal("failed to open send pipeline", zap.Error(err))
	}
	defer func() { _ = closePipeline() }()

	campaignRepo := &repository.CampaignRepository{DB: sqlDB}
	scheduler := service.NewScheduleService(campaignRepo, pipeline, log)

	ticker := time.NewTicker(cfg.Scheduler.Interval)
	defer ticker.Stop()

	worker := service.NewScheduleWorker(scheduler, ticker.C, cfg.Scheduler.BatchSize, cfg.Scheduler.TickTimeout, log)

	log.Info("worker running",
		zap.Duration("interval", cfg.Scheduler.Interval),
		zap.Int("batch_size", cfg.Scheduler.BatchSize),
	)
	worker.Start(ctx)
	log.Info("worker stopped")
}
